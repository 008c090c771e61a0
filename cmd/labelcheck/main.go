// Command labelcheck reports label files in a detection project that the
// dataset builder would skip or mislabel: malformed lines, classes missing
// from classes.lst and boxes outside the image.
//
// Usage: labelcheck -project <project.json>
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"snaplabel/internal/project"
)

func main() {
	projectPath := flag.String("project", "", "project file to check")
	flag.Parse()

	if *projectPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -project <project.json>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	p, err := project.Load(*projectPath)
	if err != nil {
		log.WithError(err).Error("could not load project")
		os.Exit(1)
	}
	if p.Type != project.ObjectDetection {
		log.WithField("type", p.Type).Error("only detection projects have label files")
		os.Exit(1)
	}

	rep, err := check(p)
	if err != nil {
		log.WithError(err).Error("check failed")
		os.Exit(1)
	}
	for _, prob := range rep.Problems {
		fmt.Println(prob)
	}
	fmt.Printf("%d label files, %d boxes, %d problems\n", rep.Files, rep.Boxes, len(rep.Problems))
	if len(rep.Problems) > 0 {
		os.Exit(1)
	}
}

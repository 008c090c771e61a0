// Command mkdataset builds a YOLO dataset from a project without the GUI.
// It uses the same split and layout as the Build Dataset button.
//
// Usage: mkdataset -project <project.json> [-seed N]
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"snaplabel/internal/app"
	"snaplabel/internal/dataset"
	"snaplabel/internal/version"
)

func main() {
	projectPath := flag.String("project", "", "project file to build from")
	seed := flag.Int64("seed", 0, "shuffle seed (0 uses the clock)")
	verbose := flag.Bool("v", false, "log each copied file")
	flag.Parse()

	if *projectPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -project <project.json> [-seed N]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	log.WithField("version", version.String()).Debug("mkdataset")

	res, err := build(*projectPath, *seed, log)
	if err != nil {
		log.WithError(err).Error("build failed")
		os.Exit(1)
	}

	fmt.Printf("Dataset: %s\n", res.Dir)
	for _, s := range dataset.Splits {
		fmt.Printf("  %-5s %d\n", s, res.Counts[s])
	}
	if len(res.Failed) > 0 {
		fmt.Printf("  %d files could not be copied\n", len(res.Failed))
		os.Exit(1)
	}
}

func build(projectPath string, seed int64, log logrus.FieldLogger) (dataset.Result, error) {
	state := app.NewState(log)
	if err := state.OpenProject(projectPath); err != nil {
		return dataset.Result{}, err
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return state.BuildDataset(rand.New(rand.NewSource(seed)))
}

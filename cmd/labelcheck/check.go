package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"snaplabel/internal/labels"
	"snaplabel/internal/project"
)

// Problem is one finding in a label file. Line is 0 for file-level findings.
type Problem struct {
	File string
	Line int
	Msg  string
}

func (p Problem) String() string {
	if p.Line == 0 {
		return fmt.Sprintf("%s: %s", p.File, p.Msg)
	}
	return fmt.Sprintf("%s:%d: %s", p.File, p.Line, p.Msg)
}

// Report summarises a project check.
type Report struct {
	Files    int
	Boxes    int
	Problems []Problem
}

func check(p *project.File) (Report, error) {
	var rep Report
	classes, err := labels.ReadClasses(p.ClassesPath())
	if err != nil {
		return rep, err
	}
	known := labels.ClassIDs(classes)

	images, err := p.ListImages()
	if err != nil {
		return rep, err
	}
	for _, img := range images {
		path := p.LabelPath(img)
		name := filepath.Base(path)
		f, err := os.Open(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return rep, fmt.Errorf("open labels: %w", err)
		}
		boxes, bad, err := labels.Parse(f)
		f.Close()
		if err != nil {
			return rep, fmt.Errorf("read labels %s: %w", path, err)
		}

		rep.Files++
		rep.Boxes += len(boxes)
		for _, le := range bad {
			rep.Problems = append(rep.Problems, Problem{File: name, Line: le.Line, Msg: le.Err.Error()})
		}
		for i, b := range boxes {
			if _, ok := known[b.Class]; !ok {
				rep.Problems = append(rep.Problems, Problem{File: name, Msg: fmt.Sprintf("box %d: class %q not in %s", i+1, b.Class, project.ClassesFileName)})
			}
			if !inUnit(b) {
				rep.Problems = append(rep.Problems, Problem{File: name, Msg: fmt.Sprintf("box %d: outside the image", i+1)})
			}
		}
	}
	return rep, nil
}

// inUnit reports whether a centre-form box lies inside the unit square.
func inUnit(b labels.Box) bool {
	const eps = 1e-6
	return b.W > 0 && b.H > 0 &&
		b.CX-b.W/2 >= -eps && b.CX+b.W/2 <= 1+eps &&
		b.CY-b.H/2 >= -eps && b.CY+b.H/2 <= 1+eps
}

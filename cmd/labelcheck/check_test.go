package main

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snaplabel/internal/labels"
	"snaplabel/internal/project"
)

func TestCheckReportsProblems(t *testing.T) {
	p, err := project.Create("demo", project.ObjectDetection, filepath.Join(t.TempDir(), "demo"))
	require.NoError(t, err)
	require.NoError(t, labels.WriteClasses(p.ClassesPath(), []string{"cat"}))

	for _, name := range []string{"a.png", "b.png", "c.png"} {
		require.NoError(t, imaging.Save(image.NewRGBA(image.Rect(0, 0, 10, 10)), p.ImagePath(name)))
	}
	require.NoError(t, os.WriteFile(p.LabelPath("a.png"), []byte("cat 0.5 0.5 0.2 0.2\n"), 0644))
	require.NoError(t, os.WriteFile(p.LabelPath("b.png"), []byte("dog 0.5 0.5 0.2 0.2\ncat 0.5\ncat 0.95 0.5 0.2 0.2\n"), 0644))

	rep, err := check(p)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Files)
	assert.Equal(t, 3, rep.Boxes)
	require.Len(t, rep.Problems, 3)

	assert.Equal(t, Problem{File: "b.txt", Line: 2, Msg: rep.Problems[0].Msg}, rep.Problems[0])
	assert.Contains(t, rep.Problems[0].String(), "b.txt:2:")
	assert.Contains(t, rep.Problems[1].Msg, `class "dog"`)
	assert.Contains(t, rep.Problems[2].Msg, "outside the image")
}

func TestCheckCleanProject(t *testing.T) {
	p, err := project.Create("demo", project.ObjectDetection, filepath.Join(t.TempDir(), "demo"))
	require.NoError(t, err)

	rep, err := check(p)
	require.NoError(t, err)
	assert.Zero(t, rep.Files)
	assert.Empty(t, rep.Problems)
}

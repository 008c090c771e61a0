// Package main provides the entry point for the SnapLabel application.
package main

import (
	"os"

	fyneapp "fyne.io/fyne/v2/app"
	"github.com/sirupsen/logrus"

	"snaplabel/internal/app"
	"snaplabel/internal/version"
	"snaplabel/ui/mainwindow"
	"snaplabel/ui/prefs"
)

const appID = "io.snaplabel.app"

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetReportCaller(true)
	log.WithField("version", version.String()).Info("starting SnapLabel")

	a := fyneapp.NewWithID(appID)
	a.Settings().SetTheme(&app.SnapLabelTheme{})

	appState := app.NewState(log)
	appPrefs := prefs.Load()

	win := mainwindow.New(a, appState, appPrefs)

	// Handle command line arguments
	if len(os.Args) > 1 {
		projectPath := os.Args[1]
		if err := win.OpenProject(projectPath); err != nil {
			log.WithError(err).WithField("project", projectPath).Error("failed to load project")
		}
	} else {
		win.RestoreLastProject()
	}

	win.ShowAndRun()
}

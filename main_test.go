package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureOutput(f func()) string {
	var buf bytes.Buffer
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	done := make(chan bool)
	go func() {
		_, _ = io.Copy(&buf, r)
		done <- true
	}()

	f()
	_ = w.Close()
	os.Stdout = oldStdout
	<-done

	return buf.String()
}

func callMain() (int, string) {
	exitCode := -1
	oldExit := exit
	defer func() { exit = oldExit }()
	exit = func(code int) {
		exitCode = code
		panic("exit")
	}

	output := captureOutput(func() {
		defer func() {
			if r := recover(); r != nil && r != "exit" {
				panic(r)
			}
		}()
		RealMain()
	})
	return exitCode, output
}

func TestRealMain(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	t.Setenv("BLOG_STORAGE_PATH", filepath.Join(t.TempDir(), "blog.db"))

	tests := []struct {
		name           string
		args           []string
		expectedExit   int
		expectedOutput string
	}{
		{
			name:           "no arguments",
			args:           []string{"blogapi"},
			expectedExit:   1,
			expectedOutput: "Usage: blogapi <command>",
		},
		{
			name:           "help command",
			args:           []string{"blogapi", "help"},
			expectedExit:   0,
			expectedOutput: "Usage: blogapi <command> [options]",
		},
		{
			name:           "version command",
			args:           []string{"blogapi", "version"},
			expectedExit:   0,
			expectedOutput: "blogapi version " + CliVersion,
		},
		{
			name:           "unknown command",
			args:           []string{"blogapi", "unknown"},
			expectedExit:   1,
			expectedOutput: "Unknown command: unknown",
		},
		{
			name:           "restore without file",
			args:           []string{"blogapi", "restore", "--env="},
			expectedExit:   1,
			expectedOutput: "Error: backup file path required for restore",
		},
		{
			name:           "clean with no database",
			args:           []string{"blogapi", "clean", "--env="},
			expectedExit:   0,
			expectedOutput: "Database is already clean",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			exitCode, output := callMain()

			assert.Contains(t, output, tt.expectedOutput)
			assert.Equal(t, tt.expectedExit, exitCode)
		})
	}
}

func TestPrintHelp(t *testing.T) {
	output := captureOutput(func() {
		printHelp()
	})

	for _, cmd := range []string{"help", "version", "serve", "init", "clean", "backup", "restore", "reconcile"} {
		assert.Contains(t, output, cmd)
	}
	assert.Contains(t, output, "BLOG_*")
}

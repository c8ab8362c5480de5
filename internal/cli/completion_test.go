package cli

import (
	"bytes"
	"io"
	"slices"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			root := New(io.Discard, LogInfo).RootCommand()
			var out bytes.Buffer
			root.SetOut(&out)
			root.SetArgs([]string{"completion", shell})
			if err := root.Execute(); err != nil {
				t.Fatalf("completion %s error: %v", shell, err)
			}
			if !strings.Contains(out.String(), appName) {
				t.Errorf("completion %s output does not mention %s", shell, appName)
			}
		})
	}

	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs([]string{"completion", "tcsh"})
	if err := root.Execute(); err == nil {
		t.Error("completion tcsh error = nil, want an error")
	}
}

func TestCompleteMeshFiles(t *testing.T) {
	got, dir := completeMeshFiles(nil, nil, "")
	if !slices.Equal(got, []string{"obj", "json"}) || dir != cobra.ShellCompDirectiveFilterFileExt {
		t.Errorf("completeMeshFiles() = %v, %v", got, dir)
	}
	got, dir = completeMeshFiles(nil, []string{"a.obj"}, "")
	if got != nil || dir != cobra.ShellCompDirectiveNoFileComp {
		t.Errorf("completeMeshFiles() after an argument = %v, %v", got, dir)
	}
}

func TestOutputFormats(t *testing.T) {
	if got, want := outputFormats(), []string{"dot", "json", "obj", "svg"}; !slices.Equal(got, want) {
		t.Errorf("outputFormats() = %v, want %v", got, want)
	}
}

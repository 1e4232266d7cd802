package jobs_test

import (
	"testing"

	"demix/internal/jobs"
)

func TestExpectedOutputsPerKind(t *testing.T) {
	static := &jobs.Job{Kind: jobs.KindStaticMix, Stems: jobs.StemSelection{Vocals: true}}
	if got := static.ExpectedOutputs(); len(got) != 1 || got[0] != jobs.OutputMix {
		t.Fatalf("static mix outputs: %v", got)
	}

	dynamic := &jobs.Job{Kind: jobs.KindDynamicMix}
	got := dynamic.ExpectedOutputs()
	if len(got) != 4 {
		t.Fatalf("dynamic mix outputs: %v", got)
	}
	want := map[jobs.OutputKind]bool{
		jobs.OutputVocals: true,
		jobs.OutputOther:  true,
		jobs.OutputBass:   true,
		jobs.OutputDrums:  true,
	}
	for _, kind := range got {
		if !want[kind] {
			t.Fatalf("unexpected dynamic output %s", kind)
		}
	}

	fetch := &jobs.Job{Kind: jobs.KindFetch}
	if got := fetch.ExpectedOutputs(); len(got) != 1 || got[0] != jobs.OutputAudio {
		t.Fatalf("fetch outputs: %v", got)
	}
}

func TestOutputFileNames(t *testing.T) {
	job := &jobs.Job{
		Kind:   jobs.KindDynamicMix,
		Artist: "Daft Punk",
		Title:  "Around the World",
	}
	if name := job.OutputFileName(jobs.OutputVocals); name != "vocals.mp3" {
		t.Fatalf("stem file name: %q", name)
	}

	job.Kind = jobs.KindStaticMix
	if name := job.OutputFileName(jobs.OutputMix); name != "daft-punk-around-the-world.mp3" {
		t.Fatalf("mix file name: %q", name)
	}

	job.Kind = jobs.KindFetch
	job.Link = "https://example.com/audio.webm"
	if name := job.OutputFileName(jobs.OutputAudio); name != "daft-punk-around-the-world.webm" {
		t.Fatalf("fetch file name: %q", name)
	}

	job.Link = "https://example.com/watch?v=abc"
	if name := job.OutputFileName(jobs.OutputAudio); name != "daft-punk-around-the-world.mp3" {
		t.Fatalf("fetch fallback file name: %q", name)
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, tc := range []struct {
		status   jobs.Status
		terminal bool
	}{
		{jobs.StatusPending, false},
		{jobs.StatusInProgress, false},
		{jobs.StatusDone, true},
		{jobs.StatusError, true},
	} {
		if tc.status.Terminal() != tc.terminal {
			t.Fatalf("%s: terminal = %v", tc.status, tc.status.Terminal())
		}
	}
}

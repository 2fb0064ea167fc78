package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modeyang/M-TraeSoloProduct/internal/domain/generation"
)

func TestBuildRequest(t *testing.T) {
	t.Cleanup(func() { promptFlag, imageFlags, optionFlags = "", nil, nil })

	t.Run("parses options", func(t *testing.T) {
		promptFlag = "waves"
		optionFlags = []string{"duration=5"}

		req, err := buildRequest(generation.KindTextToVideo)
		require.NoError(t, err)
		assert.Equal(t, "waves", req.Prompt)
		assert.Equal(t, map[string]string{"duration": "5"}, req.Options)
	})

	t.Run("rejects malformed options", func(t *testing.T) {
		optionFlags = []string{"duration"}

		_, err := buildRequest(generation.KindTextToVideo)
		assert.ErrorContains(t, err, "name=value")
	})
}

func TestRunPlain(t *testing.T) {
	profile, err := generation.ProfileFor(generation.KindTextToImage)
	require.NoError(t, err)

	t.Run("prints progress and the result", func(t *testing.T) {
		gen := generation.GeneratorFunc(func(ctx context.Context, job generation.Job, onProgress generation.ProgressFunc) (*generation.Result, error) {
			onProgress(50)
			return job.Profile.NewResult(job.Request, time.Now()), nil
		})
		s := generation.NewSession(profile, gen)
		defer s.Close()

		var out bytes.Buffer
		require.NoError(t, runPlain(&out, s, &generation.Request{Prompt: "moon"}))
		assert.Contains(t, out.String(), "succeeded 100%")
		assert.Contains(t, out.String(), "save: ai-generated-")
	})

	t.Run("returns the failure", func(t *testing.T) {
		gen := generation.GeneratorFunc(func(ctx context.Context, job generation.Job, onProgress generation.ProgressFunc) (*generation.Result, error) {
			return nil, assert.AnError
		})
		s := generation.NewSession(profile, gen)
		defer s.Close()

		err := runPlain(&bytes.Buffer{}, s, &generation.Request{Prompt: "moon"})
		assert.ErrorIs(t, err, generation.ErrBackendFailure)
	})

	t.Run("returns the rejection", func(t *testing.T) {
		s := generation.NewSession(profile, generation.NewSimulator())
		defer s.Close()

		err := runPlain(&bytes.Buffer{}, s, &generation.Request{})
		assert.ErrorIs(t, err, generation.ErrEmptyPrompt)
	})
}

func TestDescribeProfile(t *testing.T) {
	profile, err := generation.ProfileFor(generation.KindTextToImage)
	require.NoError(t, err)

	text := describeProfile(profile)
	assert.Contains(t, text, "prompt required: true, images: 0")
	assert.Contains(t, text, "--option style=<cartoon|realistic|watercolor|anime> (default cartoon)")
	for _, preset := range profile.Presets {
		assert.Contains(t, text, preset)
	}
}

package cli

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/zapgen/internal/generator"
	"github.com/roach88/zapgen/internal/pipeline"
)

func jsonFormatter() (*OutputFormatter, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return &OutputFormatter{Format: "json", Writer: &out, ErrWriter: &errOut}, &out, &errOut
}

func analyzeReport() *pipeline.Report {
	return &pipeline.Report{
		Mode:         "analyze",
		StorePath:    "/state/analysis.sqlite",
		StoreCleaned: true,
		Inputs: []pipeline.InputResult{
			{File: "light.zap", SessionID: 1},
			{File: "broken.zap", Err: errors.New("unexpected end of JSON input")},
			{File: "switch.zap", SessionID: 2},
		},
	}
}

func TestSummarize_AnalyzeReport(t *testing.T) {
	s := summarize(analyzeReport())

	assert.Equal(t, "analyze", s.Mode)
	assert.Equal(t, "/state/analysis.sqlite", s.Store)
	assert.True(t, s.StoreCleaned)
	assert.Equal(t, []int64{1, 2}, s.Sessions, "failed inputs have no session")
	require.Len(t, s.Inputs, 3)
	assert.Equal(t, InputSummary{File: "broken.zap", Error: "unexpected end of JSON input"}, s.Inputs[1])
	assert.Nil(t, s.Generation)
}

func TestSummarize_EmptyRunKeepsSessionsArray(t *testing.T) {
	var out bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &out}
	require.NoError(t, f.Success(summarize(&pipeline.Report{Mode: "self-check", StorePath: "/state/self-check.sqlite"})))

	assert.JSONEq(t, `{
		"status": "ok",
		"data": {"mode": "self-check", "store": "/state/self-check.sqlite", "store_cleaned": false, "sessions": []}
	}`, out.String())
}

func TestWriteJSON_GenerateSuccess(t *testing.T) {
	f, out, _ := jsonFormatter()
	rep := &pipeline.Report{
		Mode:      "generate",
		StorePath: "/state/generate.sqlite",
		Inputs:    []pipeline.InputResult{{SessionID: 1, Output: "/out"}},
		Generation: &generator.Result{
			OutputDir: "/out",
			Files:     []generator.FileResult{{Template: "Endpoint config", Output: "endpoint-config.h", Path: "/out/endpoint-config.h"}},
		},
	}

	require.NoError(t, writeJSON(f, rep, nil))

	resp, summary := decodeResponse(t, out.Bytes())
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
	assert.Equal(t, []int64{1}, summary.Sessions)
	require.NotNil(t, summary.Generation)
	assert.Equal(t, "/out", summary.Generation.OutputDir)
	assert.Equal(t, "/out/endpoint-config.h", summary.Generation.Files[0].Path)
}

func TestWriteJSON_FailureCarriesSummaryAndCode(t *testing.T) {
	f, out, _ := jsonFormatter()
	runErr := &pipeline.Error{Code: pipeline.ErrCodeMetadataLoad, Message: "cannot load metadata", Path: "zcl.yaml"}

	err := writeJSON(f, &pipeline.Report{Mode: "convert", StorePath: "/state/convert.sqlite"}, runErr)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorIs(t, err, runErr)

	resp, summary := decodeResponse(t, out.Bytes())
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "METADATA_LOAD_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "zcl.yaml")
	assert.Equal(t, "convert", summary.Mode)
	assert.Equal(t, []int64{}, summary.Sessions)
}

func TestErrorCode(t *testing.T) {
	wrapped := fmt.Errorf("run: %w", &pipeline.Error{Code: pipeline.ErrCodeTemplateLoad})
	assert.Equal(t, "TEMPLATE_LOAD_ERROR", errorCode(wrapped))
	assert.Equal(t, "ERROR", errorCode(errors.New("plain")))
}

func TestCommandError_JSONHasNoDetails(t *testing.T) {
	f, out, _ := jsonFormatter()

	err := commandError(f, errors.New("state directory is a file"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.JSONEq(t, `{
		"status": "error",
		"error": {"code": "COMMAND_ERROR", "message": "state directory is a file"}
	}`, out.String())
}

func TestCommandError_TextWritesNothing(t *testing.T) {
	var out bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &out}

	err := commandError(f, errors.New("bad log level"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Empty(t, out.String())
}

func TestOutputFormatter_TextErrorShowsSummaryOnlyWhenVerbose(t *testing.T) {
	summary := RunSummary{Mode: "generate", Store: "/state/generate.sqlite"}

	var quiet bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &quiet}
	require.NoError(t, f.Error("GENERATION_ARTIFACT_ERROR", "1 template failed", summary))
	assert.Equal(t, "Error [GENERATION_ARTIFACT_ERROR]: 1 template failed\n", quiet.String())

	var verbose bytes.Buffer
	f = &OutputFormatter{Format: "text", Writer: &verbose, Verbose: true}
	require.NoError(t, f.Error("GENERATION_ARTIFACT_ERROR", "1 template failed", summary))
	assert.Contains(t, verbose.String(), "Details: ")
	assert.Contains(t, verbose.String(), "/state/generate.sqlite")
}

func TestOutputFormatter_VerboseLogStaysOffJSON(t *testing.T) {
	f, out, errOut := jsonFormatter()
	f.Verbose = true

	f.VerboseLog("state directory: %s", "/state")
	require.NoError(t, f.Success(RunSummary{Mode: "self-check", Sessions: []int64{}}))

	assert.Equal(t, "state directory: /state\n", errOut.String())
	resp, summary := decodeResponse(t, out.Bytes())
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "self-check", summary.Mode)
}

func TestOutputFormatter_VerboseLogFallsBackToWriter(t *testing.T) {
	var out bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &out, Verbose: true}
	f.VerboseLog("state directory: %s", "/state")
	assert.Equal(t, "state directory: /state\n", out.String())

	out.Reset()
	f.Verbose = false
	f.VerboseLog("hidden")
	assert.Empty(t, out.String())
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"run failure", WrapExitError(ExitFailure, "analyze failed", &pipeline.Error{Code: pipeline.ErrCodeInputProcessing}), ExitFailure},
		{"command error", NewExitError(ExitCommandError, "invalid format"), ExitCommandError},
		{"wrapped command error", fmt.Errorf("start: %w", NewExitError(ExitCommandError, "bad flags")), ExitCommandError},
		{"plain error", errors.New("boom"), ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

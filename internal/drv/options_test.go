package drv_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llir-opt/internal/drv"
)

func TestParseArgsCollectsInputsAndFlags(t *testing.T) {
	opts, err := drv.ParseArgs([]string{
		"a.o", "-o", "out", "-O2", "-shared", "-lm", "-Lpath/to/libs",
		"-eentrypoint", "-uundefsym", "-mcpu=x86-64", "-mabi=sysv", "-mfs=gs",
		"b.o",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.o", "b.o"}, opts.Inputs)
	assert.Equal(t, "out", opts.Output)
	assert.Equal(t, "2", opts.Opt)
	assert.True(t, opts.Shared)
	assert.Equal(t, []string{"m"}, opts.Libs)
	assert.Equal(t, []string{"path/to/libs"}, opts.LibPaths)
	assert.Equal(t, "entrypoint", opts.Entry)
	assert.Equal(t, []string{"undefsym"}, opts.Undefined)
	assert.Equal(t, "x86-64", opts.CPU)
	assert.Equal(t, "sysv", opts.ABI)
	assert.Equal(t, "gs", opts.FS)
}

func TestParseArgsRejectsUnknownFlag(t *testing.T) {
	_, err := drv.ParseArgs([]string{"--bogus-flag"})
	require.Error(t, err)
}

func TestParseArgsRejectsUnterminatedStartGroup(t *testing.T) {
	_, err := drv.ParseArgs([]string{"--start-group", "a.o", "b.o"})
	require.Error(t, err)
}

func TestParseArgsRejectsUnmatchedEndGroup(t *testing.T) {
	_, err := drv.ParseArgs([]string{"--end-group"})
	require.Error(t, err)
}

func TestParseArgsRecordsGroupSpan(t *testing.T) {
	opts, err := drv.ParseArgs([]string{"a.o", "--start-group", "b.o", "c.o", "--end-group", "d.o"})
	require.NoError(t, err)
	require.Len(t, opts.Groups, 1)
	assert.Equal(t, drv.GroupSpan{Start: 1, End: 3}, opts.Groups[0])
	assert.Equal(t, []string{"a.o", "b.o", "c.o", "d.o"}, opts.Inputs)
}

func TestParseArgsRejectsInvalidOptLevel(t *testing.T) {
	_, err := drv.ParseArgs([]string{"-Obogus"})
	require.Error(t, err)
}

func TestParseArgsAcceptsOptLevelS(t *testing.T) {
	opts, err := drv.ParseArgs([]string{"-Os"})
	require.NoError(t, err)
	assert.Equal(t, "s", opts.Opt)
}

func TestInferOutputFormat(t *testing.T) {
	cases := map[string]drv.OutputFormat{
		"a.o":      drv.FormatOBJ,
		"a.llir":   drv.FormatLLIRText,
		"a.llbc":   drv.FormatBitcode,
		"a.s":      drv.FormatASM,
		"a.S":      drv.FormatASM,
		"a.out":    drv.FormatEXE,
		"":         drv.FormatEXE,
	}
	for path, want := range cases {
		assert.Equal(t, want, drv.InferOutputFormat(path), path)
	}
}

func TestApplyEnvFillsUnsetFieldsOnly(t *testing.T) {
	opts, err := drv.ParseArgs([]string{"-mcpu=x86-64"})
	require.NoError(t, err)

	opts, err = drv.ApplyEnv(opts, drv.Env{CPU: "aarch64", ABI: "aapcs", SaveDir: "/tmp/saves"})
	require.NoError(t, err)
	assert.Equal(t, "x86-64", opts.CPU, "explicit flag wins over env default")
	assert.Equal(t, "aapcs", opts.ABI)
	assert.Equal(t, "/tmp/saves", opts.SaveDir)
}

func TestApplyEnvReparsesExtraFlags(t *testing.T) {
	opts, err := drv.ParseArgs([]string{"a.o"})
	require.NoError(t, err)

	opts, err = drv.ApplyEnv(opts, drv.Env{Flags: "-shared -lm"})
	require.NoError(t, err)
	assert.True(t, opts.Shared)
	assert.Contains(t, opts.Libs, "m")
	assert.Contains(t, opts.Inputs, "a.o")
}

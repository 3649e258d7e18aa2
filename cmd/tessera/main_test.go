package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NicolasMassart/tessera/pkg/tmconf"
)

func TestBuildEnclaveProducesAUsableEnclave(t *testing.T) {
	e, err := buildEnclave(&tmconf.EnclaveConfig{})
	require.NoError(t, err)
	assert.NotNil(t, e)
}

func TestBuildEnclaveGeneratesFreshKeysEachCall(t *testing.T) {
	e1, err := buildEnclave(&tmconf.EnclaveConfig{})
	require.NoError(t, err)
	e2, err := buildEnclave(&tmconf.EnclaveConfig{})
	require.NoError(t, err)

	assert.NotEqual(t, e1.DefaultPublicKey(), e2.DefaultPublicKey())
}

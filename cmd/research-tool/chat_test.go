// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/agent"
)

func TestChatLoop(t *testing.T) {
	var got []string
	turn := func(msg string) error {
		if msg == "bad" {
			return fmt.Errorf("%w: rejected", agent.ErrInvalidMessage)
		}
		got = append(got, msg)
		return nil
	}

	var out bytes.Buffer
	in := strings.NewReader("search for graphs\n\n  bad \nsummarize\nexit\nnever read\n")
	require.NoError(t, chatLoop(context.Background(), in, &out, turn))
	assert.Equal(t, []string{"search for graphs", "summarize"}, got)
	assert.Contains(t, out.String(), "invalid message: rejected")
}

func TestChatLoopStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	err := chatLoop(context.Background(), strings.NewReader("a\nb\n"), &bytes.Buffer{}, func(string) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestSearchRequestFromFlags(t *testing.T) {
	cmd := &cobra.Command{}
	addSearchFlags(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"--limit", "5", "--sources", "arxiv,pubmed", "--year-from", "2020", "--no-dedup"}))

	req, err := searchRequestFromFlags(cmd, []string{"graph", "networks"})
	require.NoError(t, err)
	assert.Equal(t, "graph networks", req.Query)
	assert.Equal(t, 5, req.LimitPerSource)
	assert.Len(t, req.Sources, 2)
	require.NotNil(t, req.YearFrom)
	assert.Equal(t, 2020, *req.YearFrom)
	assert.Nil(t, req.YearTo)
	assert.False(t, req.Deduplicate)

	_, err = searchRequestFromFlags(cmd, nil)
	assert.Error(t, err)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/agent"
	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Talk to the research agent",
	Long: `Chat sends a message to the research agent for a project and prints the
reply. Without a message it reads one message per line from standard input
until EOF or "exit".

The project is created on first use. Papers added by the agent, the outline
and the conversation are kept in the library database.`,
	RunE: runChat,
}

func init() {
	f := chatCmd.Flags()
	f.String("project", "default", "project name")
	f.Bool("auto-ingest", false, "ingest PDFs of papers added by this session")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newFullApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	name, _ := cmd.Flags().GetString("project")
	p, err := a.projectByName(ctx, name)
	if err != nil {
		return err
	}

	var autoIngest *bool
	if cmd.Flags().Changed("auto-ingest") {
		v, _ := cmd.Flags().GetBool("auto-ingest")
		autoIngest = &v
	}
	turn := func(msg string) error {
		resp, err := a.agent.ProcessMessage(ctx, p.ID, types.ChatRequest{Message: msg, AutoIngest: autoIngest})
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, resp.Message)
		return nil
	}

	if len(args) > 0 {
		return turn(strings.Join(args, " "))
	}
	return chatLoop(ctx, os.Stdin, os.Stdout, turn)
}

// chatLoop answers one message per input line. Invalid messages are
// reported and the loop continues.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, turn func(string) error) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 4*types.MaxChatMessageLength)
	fmt.Fprint(out, "> ")
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "exit" || line == "quit":
			return nil
		case line != "":
			if err := turn(line); errors.Is(err, agent.ErrInvalidMessage) {
				fmt.Fprintln(out, err)
			} else if err != nil {
				return err
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Fprint(out, "\n> ")
	}
	return sc.Err()
}

package main

import (
	"fmt"
	"os"
	"strings"

	"ai-finance-assistant-be/internal/constant"
	"ai-finance-assistant-be/internal/dto"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	var chatId uint
	var userId string
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Run one question through the assistant and stream the answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userId == "" {
				userId = uuid.NewString()
			}
			req := &dto.AssistantRequest{Query: args[0]}
			if chatId > 0 {
				req.ChatId = &chatId
			}

			sess, err := container.AssistantService.Prepare(cmd.Context(), userId, req)
			if err != nil {
				return err
			}

			sentinel := color.New(color.FgHiBlack)
			result, err := container.AssistantService.Stream(cmd.Context(), sess, func(delta string) error {
				if strings.HasPrefix(delta, constant.StreamSentinelPrefix) {
					_, werr := sentinel.Fprint(os.Stdout, delta)
					return werr
				}
				_, werr := fmt.Fprint(os.Stdout, delta)
				return werr
			})
			fmt.Fprintln(os.Stdout)
			if err != nil {
				return err
			}
			color.Cyan("route=%s user=%s", result.Route, userId)
			return nil
		},
	}
	cmd.Flags().UintVar(&chatId, "chat-id", 0, "Continue an existing chat")
	cmd.Flags().StringVar(&userId, "user-id", "", "User uuid (random when empty)")
	return cmd
}

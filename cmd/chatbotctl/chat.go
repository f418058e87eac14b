package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aptrag/chatbot/question"
)

var (
	chatUserID   string
	chatQuestion string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask a question against a user's stored personality documents",
}

var chatAskCmd = &cobra.Command{
	Use:   "ask",
	Short: "Run one question through the full retrieval and generation pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		if chatUserID == "" || chatQuestion == "" {
			return fmt.Errorf("--user and --question are required")
		}
		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		convCtx := &question.ConversationContext{UserID: chatUserID}

		pq, err := a.questions.Process(cmd.Context(), chatQuestion, convCtx)
		if err != nil {
			return fmt.Errorf("process question: %w", err)
		}

		cc, err := a.context.BuildContext(cmd.Context(), pq, chatUserID, "")
		if err != nil {
			return fmt.Errorf("build context: %w", err)
		}

		resp, err := a.responses.Generate(cmd.Context(), cc, chatUserID)
		if err != nil {
			return fmt.Errorf("generate response: %w", err)
		}

		fmt.Println(resp.Content)
		return nil
	},
}

func init() {
	chatAskCmd.Flags().StringVar(&chatUserID, "user", "", "user ID asking the question")
	chatAskCmd.Flags().StringVar(&chatQuestion, "question", "", "the question text")

	chatCmd.AddCommand(chatAskCmd)
}

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/afalarconm/barnechea-driver/internal/notify"
)

func newSendCmd() *cobra.Command {
	var to, text string

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a WhatsApp test message through the configured gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			client := notify.New(notify.Config{
				BaseURL:       cfg.KapsoBase,
				APIKey:        cfg.KapsoAPIKey,
				PhoneNumberID: cfg.KapsoPhoneNumberID,
			})
			if !client.Configured() {
				fmt.Println("gateway not configured, message will only be logged")
			}
			return client.SendText(context.Background(), to, text)
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "recipient phone number")
	cmd.Flags().StringVar(&text, "text", "mensaje de prueba", "message body")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

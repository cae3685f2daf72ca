package main

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/danmuck/edgelink/internal/protocol/codec"
	"github.com/danmuck/edgelink/internal/protocol/message"
	"github.com/danmuck/edgelink/internal/protocol/schema"
)

func newSendCmd() *cobra.Command {
	var (
		name     string
		receiver int
	)
	cmd := &cobra.Command{
		Use:   "send field=value ...",
		Short: "Send one catalog message",
		Long: `Build one message from field=value arguments and send it.

Arrays are comma separated, optionally in braces. Strings and char arrays
take the text as is.

Examples:
  linkctl send -c link.toml -m ATTITUDE phi=0.1 theta=0 psi=1.57
  linkctl send -c link.toml -m ALIVE md5sum={1,2,3}`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			l, dev, err := openLink(cfg)
			if err != nil {
				return err
			}
			defer dev.Close()

			def, err := l.Catalog().Lookup(name)
			if err != nil {
				return err
			}
			msg, err := buildMessage(def, args)
			if err != nil {
				return err
			}
			msg.ReceiverID = cfg.ReceiverID
			if cmd.Flags().Changed("receiver") {
				if receiver < 0 || receiver > 255 {
					return fmt.Errorf("receiver %d out of range", receiver)
				}
				msg.ReceiverID = uint8(receiver)
			}
			msg.ComponentID = cfg.ComponentID
			if err := l.Send(msg); err != nil {
				return err
			}
			log.Info().Str("link", cfg.Name).Str("message", msg.String()).Msg("sent")
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "message", "m", "", "message name (required)")
	cmd.Flags().IntVarP(&receiver, "receiver", "r", 0, "receiver id, overrides receiver_id")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

// buildMessage sets every field=value pair on a new message of def. All
// fields must be given.
func buildMessage(def *schema.MessageDefinition, args []string) (*message.Message, error) {
	msg := message.New(def)
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("argument %q is not field=value", arg)
		}
		key = strings.TrimSpace(key)
		field, _, err := def.FieldByName(key)
		if err != nil {
			return nil, err
		}
		v, err := codec.Parse(field.Type, raw)
		if err != nil {
			return nil, &message.FieldError{Message: def.Name, Field: key, Err: err}
		}
		if err := msg.Set(key, v); err != nil {
			return nil, err
		}
	}
	if missing := msg.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s missing %s", message.ErrIncomplete, def.Name, strings.Join(missing, ", "))
	}
	return msg, nil
}

package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fableloom/fableloom/character"
	"github.com/fableloom/fableloom/chat"
	"github.com/fableloom/fableloom/configuration"
	"github.com/fableloom/fableloom/engine"
	"github.com/fableloom/fableloom/events"
	"github.com/fableloom/fableloom/internal/cli"
	"github.com/fableloom/fableloom/provider"
	"github.com/fableloom/fableloom/settings"
	"github.com/fableloom/fableloom/store"
	"github.com/fableloom/fableloom/writer"
)

const (
	configFilepath = "~/.fableloom/config.json"
	eventsTopic    = "turn-events"
)

var rootCmd = &cobra.Command{
	Use:   "fableloom",
	Short: "A branching roleplay chat and long-form writing CLI",
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel)

	config, err := configuration.Parse(configFilepath)
	if err != nil {
		cli.Error("parsing configuration: %v", err)
		os.Exit(1)
	}

	s, err := store.New(config.DatabasePath())
	if err != nil {
		cli.Error("opening store: %v", err)
		os.Exit(1)
	}
	defer s.Close()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()
	// Subscribe before any command can publish so early deltas are not lost.
	eventMessages, err := pubSub.Subscribe(context.Background(), eventsTopic)
	if err != nil {
		cli.Error("subscribing to events: %v", err)
		os.Exit(1)
	}
	go printEvents(eventMessages)

	e := engine.New(s, engine.WithSink(events.NewWatermillSink(pubSub, eventsTopic)))
	w := writer.New(s, events.NewWatermillSink(pubSub, eventsTopic))

	rootCmd.AddCommand(
		chat.NewCmd(s, e),
		provider.NewCmd(s),
		character.NewCmd(s),
		settings.NewCmd(s),
		writer.NewCmd(s, w, config.ExportsPath()),
	)
	rootCmd.Execute()
}

// printEvents renders streamed deltas to the terminal as they arrive.
func printEvents(messages <-chan *message.Message) {
	for msg := range messages {
		var event events.Event
		if err := json.Unmarshal(msg.Payload, &event); err == nil && event.Kind == events.KindDelta {
			cli.AIOutput("%s", event.Delta)
		}
		msg.Ack()
	}
}

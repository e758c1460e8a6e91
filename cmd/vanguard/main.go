package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gokatarajesh/cds-vanguard/internal/app"
	"github.com/gokatarajesh/cds-vanguard/internal/config"
	"github.com/gokatarajesh/cds-vanguard/internal/question"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "vanguard",
		Short:        "Operator tools for the exam question pipeline",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if os.Getenv("APP_ENV") != "production" {
				_ = godotenv.Load("configs/.env")
			}
		},
	}
	root.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	root.AddCommand(supplyCmd(), fallbackCmd())
	return root
}

func topicFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("topic", "t", "", "Topic id, e.g. polity or mod-gandhi (required)")
	f.String("name", "", "Topic display name (defaults to the id)")
	f.String("subject", "", "Subject the topic belongs to")
	f.StringP("section", "s", string(question.SectionGK), "Section: english, mathematics or general_knowledge")
	f.IntP("count", "n", 0, "Questions to supply (0 = configured default)")
	_ = cmd.MarkFlagRequired("topic")
}

func supplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "supply",
		Short: "Generate a question pack through the live pipeline and print it as JSON",
		RunE:  runSupply,
	}
	topicFlags(cmd)
	cmd.Flags().String("redis", "", "Redis address; when set, prefetched packs are consumed first")
	return cmd
}

func fallbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fallback",
		Short: "Print the offline pack the pipeline would serve for a topic",
		RunE:  runFallback,
	}
	topicFlags(cmd)
	return cmd
}

func topicFromFlags(cmd *cobra.Command) (question.Topic, int, error) {
	f := cmd.Flags()
	id, _ := f.GetString("topic")
	name, _ := f.GetString("name")
	subject, _ := f.GetString("subject")
	section, _ := f.GetString("section")
	count, _ := f.GetInt("count")

	id = strings.TrimSpace(id)
	if id == "" {
		return question.Topic{}, 0, fmt.Errorf("--topic must not be empty")
	}
	switch question.Section(section) {
	case question.SectionEnglish, question.SectionMathematics, question.SectionGK:
	default:
		return question.Topic{}, 0, fmt.Errorf("unknown section %q", section)
	}
	if name == "" {
		name = id
	}
	return question.Topic{ID: id, Name: name, Subject: subject, Section: question.Section(section)}, count, nil
}

func cliLogger(cmd *cobra.Command) zerolog.Logger {
	levelName, _ := cmd.Flags().GetString("log-level")
	level, err := zerolog.ParseLevel(strings.ToLower(levelName))
	if err != nil {
		level = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).Level(level).With().Timestamp().Logger()
}

func buildSupply(cmd *cobra.Command, redisClient *redis.Client) (*app.Supply, *config.App, error) {
	cfg, err := config.LoadSupply()
	if err != nil {
		return nil, nil, err
	}
	supply, err := app.NewSupply(cfg, redisClient, cliLogger(cmd))
	if err != nil {
		return nil, nil, err
	}
	return supply, cfg, nil
}

func runSupply(cmd *cobra.Command, _ []string) error {
	topic, count, err := topicFromFlags(cmd)
	if err != nil {
		return err
	}

	var redisClient *redis.Client
	if addr, _ := cmd.Flags().GetString("redis"); addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: addr})
		defer redisClient.Close()
	}

	supply, cfg, err := buildSupply(cmd, redisClient)
	if err != nil {
		return err
	}
	if count <= 0 {
		count = cfg.Supply.DefaultQuestionCount
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return printPack(cmd, supply.Orchestrator.Supply(ctx, topic, count))
}

func runFallback(cmd *cobra.Command, _ []string) error {
	topic, count, err := topicFromFlags(cmd)
	if err != nil {
		return err
	}
	supply, cfg, err := buildSupply(cmd, nil)
	if err != nil {
		return err
	}
	if count <= 0 {
		count = cfg.Supply.DefaultQuestionCount
	}
	return printPack(cmd, supply.Orchestrator.Fallback(topic, count))
}

func printPack(cmd *cobra.Command, pack question.Pack) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(pack)
}

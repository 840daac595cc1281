package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/docther/docther/pkg/symptoms"
	"github.com/docther/docther/pkg/transcribe"
)

func newSymptomCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "symptom",
		Short: "Track symptoms from text or voice notes",
	}
	cmd.AddCommand(newSymptomLogCmd(a), newSymptomListCmd(a), newSymptomStatsCmd(a))
	return cmd
}

func newSymptomLogCmd(a *app) *cobra.Command {
	var (
		userEmail string
		audioPath string
	)

	cmd := &cobra.Command{
		Use:   "log [description]",
		Short: "Log a symptom from free text or an audio note",
		Long: `Log a symptom. The description is run through the model to extract
structured fields (type, body part, severity, timing, triggers) before being
stored. With --audio the recording is transcribed first.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSymptomLog(cmd.Context(), userEmail, audioPath, strings.Join(args, " "))
		},
	}
	cmd.Flags().StringVar(&userEmail, "user", "", "email of the user logging the symptom")
	cmd.Flags().StringVar(&audioPath, "audio", "", "path to an audio note to transcribe")
	return cmd
}

func (a *app) runSymptomLog(ctx context.Context, userEmail, audioPath, description string) error {
	st, err := a.openStore(ctx, true)
	if err != nil {
		return err
	}
	defer st.Close()

	user, err := resolveUser(ctx, st, userEmail)
	if err != nil {
		return err
	}

	if audioPath != "" {
		transcriber, err := transcribe.NewTranscriber(transcribe.Options{
			APIKey:   a.cfg.Transcription.OpenAIAPIKey,
			Model:    a.cfg.Transcription.Model,
			Language: a.cfg.Transcription.Language,
		})
		if err != nil {
			return err
		}
		text, err := transcriber.File(ctx, audioPath)
		if err != nil {
			return err
		}
		fmt.Printf("Transcribed: %s\n", text)
		description = strings.TrimSpace(description + " " + text)
	}
	if strings.TrimSpace(description) == "" {
		return errors.New("nothing to log: give a description or --audio")
	}

	chat, err := a.newChat()
	if err != nil {
		return err
	}
	extractor, err := symptoms.NewExtractor(chat)
	if err != nil {
		return err
	}

	extraction, raw, err := extractor.Extract(ctx, description)
	if err != nil {
		return err
	}

	symptom, err := st.AddSymptom(ctx, extraction.ToSymptom(user.ID, description, raw, time.Now()))
	if err != nil {
		return err
	}

	fmt.Printf("Logged symptom #%d: %s", symptom.ID, symptom.SymptomType)
	if symptom.BodyPart != "" {
		fmt.Printf(" (%s)", symptom.BodyPart)
	}
	if symptom.Severity != nil {
		fmt.Printf(", severity %d/10", *symptom.Severity)
	}
	fmt.Printf(", at %s\n", symptom.SymptomTime.Format("2006-01-02 15:04"))
	return nil
}

func newSymptomListCmd(a *app) *cobra.Command {
	var (
		userEmail string
		days      int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent symptoms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.openStore(ctx, true)
			if err != nil {
				return err
			}
			defer st.Close()

			user, err := resolveUser(ctx, st, userEmail)
			if err != nil {
				return err
			}
			since := time.Now().AddDate(0, 0, -days)
			list, err := st.ListSymptoms(ctx, user.ID, since)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Printf("No symptoms recorded in the last %d days.\n", days)
				return nil
			}
			for _, s := range list {
				severity := "-"
				if s.Severity != nil {
					severity = fmt.Sprintf("%d/10", *s.Severity)
				}
				fmt.Printf("%s  %-12s %-12s %-5s %s\n",
					s.SymptomTime.Format("2006-01-02 15:04"), s.SymptomType, s.BodyPart, severity, s.Description)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&userEmail, "user", "", "email of the user")
	cmd.Flags().IntVar(&days, "days", 30, "how many days back to list")
	return cmd
}

func newSymptomStatsCmd(a *app) *cobra.Command {
	var (
		userEmail string
		days      int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize recent symptoms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.openStore(ctx, true)
			if err != nil {
				return err
			}
			defer st.Close()

			user, err := resolveUser(ctx, st, userEmail)
			if err != nil {
				return err
			}
			since := time.Now().AddDate(0, 0, -days)
			list, err := st.ListSymptoms(ctx, user.ID, since)
			if err != nil {
				return err
			}

			stats := symptoms.Summarize(list)
			fmt.Printf("Last %d days: %d symptoms\n", days, stats.Total)
			if stats.Total == 0 {
				return nil
			}
			fmt.Printf("Average severity: %.1f, worst: %d/10\n", stats.AverageSeverity, stats.MaxSeverity)

			types := make([]string, 0, len(stats.CountByType))
			for name := range stats.CountByType {
				types = append(types, name)
			}
			sort.Strings(types)
			fmt.Println("By type:")
			for _, name := range types {
				fmt.Printf("  %-14s %d\n", name, stats.CountByType[name])
			}
			if len(stats.TopTriggers) > 0 {
				fmt.Println("Top triggers:")
				for _, trigger := range stats.TopTriggers {
					fmt.Printf("  %-14s %d\n", trigger.Trigger, trigger.Count)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&userEmail, "user", "", "email of the user")
	cmd.Flags().IntVar(&days, "days", 30, "how many days back to summarize")
	return cmd
}

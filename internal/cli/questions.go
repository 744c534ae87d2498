package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newQuestionsCmd(withApp appRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "List or submit questions",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List the question pool",
			Args:  cobra.NoArgs,
			RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
				questions, err := a.backend.ListQuestions(ctx)
				if err != nil {
					return err
				}
				return renderQuestions(a.out, questions)
			}),
		},
		&cobra.Command{
			Use:   "add TEXT...",
			Short: "Submit a custom question to the pool",
			Args:  cobra.MinimumNArgs(1),
			RunE: withApp(func(ctx context.Context, a *app, args []string) error {
				remote, err := a.requireServer("adding questions")
				if err != nil {
					return err
				}
				me, err := a.ids.Current()
				if err != nil {
					return err
				}
				q, err := remote.AddQuestion(ctx, strings.Join(args, " "), me.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Question %s added.\n", q.ID)
				return nil
			}),
		},
	)
	return cmd
}

func newAdminCmd(withApp appRunner) *cobra.Command {
	var olderThan time.Duration
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete rooms older than a threshold together with their answers",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
			remote, err := a.requireServer("admin purge")
			if err != nil {
				return err
			}
			n, err := remote.PurgeRooms(ctx, olderThan)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Purged %d rooms older than %s.\n", n, olderThan)
			return nil
		}),
	}
	purge.Flags().DurationVar(&olderThan, "older-than", 24*time.Hour, "age of the rooms to delete")

	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage rooms and questions on a server started with --admin",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "rooms",
			Short: "List every room, newest first",
			Args:  cobra.NoArgs,
			RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
				remote, err := a.requireServer("admin rooms")
				if err != nil {
					return err
				}
				rooms, err := remote.ListAllRooms(ctx)
				if err != nil {
					return err
				}
				return renderRooms(a.out, rooms, "")
			}),
		},
		&cobra.Command{
			Use:   "delete CODE",
			Short: "Delete a room and its answers",
			Args:  cobra.ExactArgs(1),
			RunE: withApp(func(ctx context.Context, a *app, args []string) error {
				remote, err := a.requireServer("admin delete")
				if err != nil {
					return err
				}
				if err := remote.DeleteRoom(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Room %s deleted.\n", strings.ToUpper(args[0]))
				return nil
			}),
		},
		purge,
		&cobra.Command{
			Use:   "rm-question ID",
			Short: "Delete a question from the pool",
			Args:  cobra.ExactArgs(1),
			RunE: withApp(func(ctx context.Context, a *app, args []string) error {
				remote, err := a.requireServer("admin rm-question")
				if err != nil {
					return err
				}
				if err := remote.DeleteQuestion(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Question %s deleted.\n", args[0])
				return nil
			}),
		},
	)
	return cmd
}

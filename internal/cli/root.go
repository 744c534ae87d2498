package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/anchal00/morningstar/internal/config"
	"github.com/anchal00/morningstar/internal/logger"
	"github.com/anchal00/morningstar/internal/model"
	"github.com/anchal00/morningstar/internal/server"
	"github.com/anchal00/morningstar/internal/session"
	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const releaseVersion = "1.0.0"

// NewRootCmd builds the morningstar command tree writing to out.
func NewRootCmd(cfg *config.Config, out io.Writer) *cobra.Command {
	v := config.NewViper()

	cmd := &cobra.Command{
		Use:     "morningstar",
		Short:   "Answer the same questions as your partner and see their answers once you both have.",
		Version: releaseVersion,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger.SetVerbose(cfg.Verbose)
			return cfg.Validate()
		},
	}
	cmd.SetOut(out)
	config.AddClientFlags(cmd.PersistentFlags(), cfg)
	config.BindFlags(v, cmd.PersistentFlags())

	withApp := func(run func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return run(cmd.Context(), a, args)
		}
	}

	cmd.AddCommand(
		newServeCmd(cfg, v),
		newWhoamiCmd(withApp),
		newCreateCmd(withApp),
		&cobra.Command{
			Use:   "join CODE",
			Short: "Join a room as its guest",
			Args:  cobra.ExactArgs(1),
			RunE: withApp(func(ctx context.Context, a *app, args []string) error {
				s, err := a.manager().Join(ctx, args[0])
				if err != nil {
					return err
				}
				defer s.Leave()
				fmt.Fprintf(a.out, "Joined room %s as %s.\n", s.Room.ID, s.Role)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "rooms",
			Short: "List the rooms you host or joined",
			Args:  cobra.NoArgs,
			RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
				rooms, err := a.manager().Rooms(ctx)
				if err != nil {
					return err
				}
				me, err := a.ids.Current()
				if err != nil {
					return err
				}
				return renderRooms(a.out, rooms, me.ID)
			}),
		},
		&cobra.Command{
			Use:   "answer CODE QUESTION_ID TEXT...",
			Short: "Submit or change your answer to a question",
			Args:  cobra.MinimumNArgs(3),
			RunE: withApp(func(ctx context.Context, a *app, args []string) error {
				s, err := a.resume(ctx, args[0])
				if err != nil {
					return err
				}
				defer s.Leave()
				if err := s.Engine.Submit(ctx, args[1], strings.Join(args[2:], " ")); err != nil {
					return err
				}
				e, _ := s.Engine.View().Entry(args[1])
				if e.Revealed {
					fmt.Fprintf(a.out, "Saved. Your partner said: %s\n", *e.Partner)
					return nil
				}
				fmt.Fprintln(a.out, "Saved. Their answer shows up once they have answered too.")
				return nil
			}),
		},
		newRevealCmd(withApp),
		newQuestionsCmd(withApp),
		newAdminCmd(withApp),
	)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("morningstar v{{.Version}}\n")
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return cmd
}

type appRunner func(run func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error

func newServeCmd(cfg *config.Config, v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MorningStar server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.ValidateServe(); err != nil {
				return err
			}
			rs, err := server.NewRoomServer(cfg.ServerOptions())
			if err != nil {
				return err
			}
			return rs.Run(cmd.Context())
		},
	}
	config.AddServeFlags(cmd.Flags(), cfg)
	config.BindFlags(v, cmd.Flags())
	return cmd
}

func newWhoamiCmd(withApp appRunner) *cobra.Command {
	var name, restore string
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show, name or restore the identity of this device",
		Args:  cobra.NoArgs,
		RunE: withApp(func(_ context.Context, a *app, _ []string) error {
			me, err := a.ids.Current()
			if err != nil {
				return err
			}
			if restore != "" {
				if me, err = a.ids.Restore(restore); err != nil {
					return err
				}
			}
			if name != "" {
				if me, err = a.ids.SetName(name); err != nil {
					return err
				}
			}
			display := me.Name
			if display == "" {
				display = "(no name, set one with --name)"
			}
			fmt.Fprintf(a.out, "id:   %s\nname: %s\n", me.ID, display)
			return nil
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "set your display name")
	cmd.Flags().StringVar(&restore, "restore", "", "switch to a previously used user id")
	return cmd
}

func newCreateCmd(withApp appRunner) *cobra.Command {
	var qrFile string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a room and print its code",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
			s, err := a.manager().Create(ctx)
			if err != nil {
				return err
			}
			defer s.Leave()
			fmt.Fprintf(a.out, "Room %s created. Share the code with your partner.\n", s.Room.ID)
			if qrFile == "" {
				return nil
			}
			if err := a.writeQR(ctx, s.Room.ID, qrFile); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "QR code written to %s\n", qrFile)
			return nil
		}),
	}
	cmd.Flags().StringVar(&qrFile, "qr", "", "write a PNG QR code of the room to this file")
	return cmd
}

// writeQR asks the server for the room link QR code, or encodes the bare
// code locally when there is no server.
func (a *app) writeQR(ctx context.Context, code, path string) error {
	if a.remote == nil {
		return qrcode.WriteFile(code, qrcode.Medium, 256, path)
	}
	png, err := a.remote.QRCode(ctx, code)
	if err != nil {
		return err
	}
	return os.WriteFile(path, png, 0o644)
}

func (a *app) resume(ctx context.Context, code string) (*session.Session, error) {
	code, err := model.NormalizeRoomCode(code)
	if err != nil {
		return nil, err
	}
	room, err := a.backend.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	return a.manager().Resume(ctx, *room)
}

func newRevealCmd(withApp appRunner) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "reveal CODE",
		Short: "Show the questions of a room with every answer you may see",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			s, err := a.resume(ctx, args[0])
			if err != nil {
				return err
			}
			defer s.Leave()
			last := s.Engine.View()
			if err := renderView(a.out, last); err != nil || !watch {
				return err
			}
			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					v := s.Engine.View()
					if reflect.DeepEqual(v, last) {
						continue
					}
					last = v
					fmt.Fprintln(a.out)
					if err := renderView(a.out, v); err != nil {
						return err
					}
				}
			}
		}),
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep running and print the room again whenever it changes")
	return cmd
}

// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: text, csv, markdown or json",
			Value:   "text",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write to a file instead of stdout",
		},
	}
}

func passwordFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "New password (prompted when omitted)"},
		&cli.StringFlag{Name: "confirm", Usage: "Repeat the new password (prompted when omitted)"},
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file and local database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Roll back the most recent migration",
			},
		},
		Action: r.Setup,
	}
}

func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Account and session management",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Log in and remember the session",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Username (prompted when omitted)"},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Password (prompted when omitted)"},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "signup",
				Usage: "Create an account",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Username (prompted when omitted)"},
					&cli.StringFlag{Name: "email", Usage: "Email address"},
					&cli.StringFlag{Name: "name", Usage: "Full name"},
				}, passwordFlags()...),
				Action: r.AuthSignup,
			},
			{
				Name:   "logout",
				Usage:  "End the current session",
				Action: r.AuthLogout,
			},
			{
				Name:  "status",
				Usage: "Show the signed in user",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.AuthStatus,
			},
			{
				Name:  "update",
				Usage: "Change profile fields or the password",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "New full name"},
					&cli.StringFlag{Name: "email", Usage: "New email address"},
					&cli.StringFlag{Name: "password", Usage: "New password"},
					&cli.StringFlag{Name: "confirm", Usage: "Repeat the new password"},
				},
				Action: r.AuthUpdate,
			},
			{
				Name:   "verify-email",
				Usage:  "Send a verification email",
				Action: r.AuthVerifyEmail,
			},
			{
				Name:      "confirm-email",
				Usage:     "Confirm an email address with the token from the verification link",
				Arguments: []cli.Argument{&cli.StringArg{Name: "token"}},
				Action:    r.AuthConfirmEmail,
			},
			{
				Name:  "forgot-password",
				Usage: "Email a password reset link",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Usage: "Account email (prompted when omitted)"},
				},
				Action: r.AuthForgotPassword,
			},
			{
				Name:      "reset-password",
				Usage:     "Set a new password with the token from the reset link",
				Arguments: []cli.Argument{&cli.StringArg{Name: "token"}},
				Flags:     passwordFlags(),
				Action:    r.AuthResetPassword,
			},
			{
				Name:  "await-link",
				Usage: "Serve the email link locally and finish verification or reset when it is opened",
				Flags: append([]cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the link",
						Value: 5 * time.Minute,
					},
				}, passwordFlags()...),
				Action: r.AuthAwaitLink,
			},
		},
	}
}

func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search openly licensed images and audio",
		ArgsUsage: "[query]",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "type",
				Aliases: []string{"t"},
				Usage:   "Media type: image or audio",
				Value:   "image",
			},
			&cli.IntFlag{Name: "page", Usage: "Result page", Value: 1},
			&cli.IntFlag{Name: "page-size", Usage: "Results per page"},
			&cli.StringSliceFlag{Name: "license", Usage: "Restrict to a license (repeatable)"},
			&cli.StringSliceFlag{Name: "license-type", Usage: "Restrict to a license type: commercial or modification"},
			&cli.StringSliceFlag{Name: "category", Usage: "Restrict to a category (repeatable)"},
			&cli.StringSliceFlag{Name: "aspect-ratio", Usage: "Image aspect ratio: tall, wide or square"},
			&cli.StringSliceFlag{Name: "size", Usage: "Image size: small, medium or large"},
			&cli.StringSliceFlag{Name: "length", Usage: "Audio length: shortest, short, medium or long"},
		}, outputFlags()...),
		Action: r.Search,
	}
}

func detailCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "detail",
		Usage:     "Show one image or audio item",
		Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "type",
				Aliases: []string{"t"},
				Usage:   "Media type: image or audio",
				Value:   "image",
			},
			&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
			&cli.BoolFlag{Name: "open", Usage: "Open the item's landing page in the browser"},
		},
		Action: r.Detail,
	}
}

func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Recent searches",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List recent searches, newest first",
				Action: r.HistoryList,
			},
			{
				Name:      "delete",
				Usage:     "Remove one keyword",
				Arguments: []cli.Argument{&cli.StringArg{Name: "keyword"}},
				Action:    r.HistoryDelete,
			},
			{
				Name:   "clear",
				Usage:  "Remove every recent search",
				Action: r.HistoryClear,
			},
		},
	}
}

func filesCommand(r *Runner) *cli.Command {
	listFlags := []cli.Flag{
		&cli.IntFlag{Name: "page", Usage: "Page to show", Value: 1},
		&cli.IntFlag{Name: "page-size", Usage: "Files per page"},
		&cli.StringFlag{Name: "sort", Usage: "Sort by created_at, name or status", Value: "created_at"},
		&cli.StringFlag{Name: "order", Usage: "Sort order: asc or desc", Value: "asc"},
	}

	return &cli.Command{
		Name:  "files",
		Usage: "Uploaded files and their descriptions",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List uploaded files",
				Flags:  append(listFlags, outputFlags()...),
				Action: r.FilesList,
			},
			{
				Name:      "upload",
				Usage:     "Upload files for description",
				ArgsUsage: "<path> [path...]",
				Action:    r.FilesUpload,
			},
			{
				Name:      "delete",
				Usage:     "Delete a file",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.FilesDelete,
			},
			{
				Name:      "retry",
				Usage:     "Re-run description for a finished file",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.FilesRetry,
			},
			{
				Name:      "cancel",
				Usage:     "Stop description for a file in progress",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.FilesCancel,
			},
			{
				Name:   "watch",
				Usage:  "List files and refresh when the backend reports changes",
				Flags:  listFlags,
				Action: r.FilesWatch,
			},
		},
	}
}

func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"ui"},
		Usage:   "Launch the interactive terminal UI",
		Action:  r.TUI,
	}
}

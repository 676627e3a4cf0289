package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/herohuhu666/wanwu/internal/application"
	"github.com/herohuhu666/wanwu/internal/destiny"
	"github.com/herohuhu666/wanwu/internal/domain"
	"github.com/urfave/cli/v3"
)

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "output raw JSON"}
}

// clientAction resolves the transport and renders out either as JSON or via render.
func clientAction[T any](call func(ctx context.Context, c *cli.Command, cfg cliConfig, out *T) error, render func(T)) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		cfg, err := clientConfig(c)
		if err != nil {
			return err
		}
		var out T
		if err := call(ctx, c, cfg, &out); err != nil {
			return err
		}
		if c.Bool("json") || render == nil {
			return printJSON(out)
		}
		render(out)
		return nil
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Save client transport settings to ~/.wanwu/config.json",
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := clientConfig(c)
			if err != nil {
				return err
			}
			if err := saveConfig(cfg); err != nil {
				return err
			}
			printKV([][2]string{{"transport", cfg.Transport}, {"server", cfg.Server}, {"socket", cfg.Socket}})
			return nil
		},
	}
}

func profileCommand() *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "Onboarding and profile state",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Save birth data and derive the core structure",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "nickname", Required: true},
					&cli.StringFlag{Name: "birth-date", Required: true, Usage: "YYYY-MM-DD"},
					&cli.StringFlag{Name: "birth-time", Usage: "HH:MM"},
					&cli.StringFlag{Name: "birth-city", Required: true},
					jsonFlag(),
				},
				Action: clientAction(func(ctx context.Context, c *cli.Command, cfg cliConfig, out *domain.Snapshot) error {
					return doLogin(ctx, cfg, map[string]string{
						"nickname":  c.String("nickname"),
						"birthDate": c.String("birth-date"),
						"birthTime": c.String("birth-time"),
						"birthCity": c.String("birth-city"),
					}, out)
				}, printSnapshot),
			},
			{
				Name:  "logout",
				Usage: "Forget the profile; merit and history stay",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := clientConfig(c)
					if err != nil {
						return err
					}
					if err := doLogout(ctx, cfg); err != nil {
						return err
					}
					fmt.Println("logged out")
					return nil
				},
			},
			{
				Name:  "show",
				Usage: "Show the stored profile",
				Flags: []cli.Flag{jsonFlag()},
				Action: clientAction(func(ctx context.Context, c *cli.Command, cfg cliConfig, out *domain.Snapshot) error {
					return doProfile(ctx, cfg, out)
				}, printSnapshot),
			},
			{
				Name:  "membership",
				Usage: "Turn membership on or off",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "member", Value: true}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := clientConfig(c)
					if err != nil {
						return err
					}
					if err := doMembership(ctx, cfg, c.Bool("member")); err != nil {
						return err
					}
					fmt.Printf("member: %t\n", c.Bool("member"))
					return nil
				},
			},
		},
	}
}

type meritView struct {
	Balance int                  `json:"balance"`
	History []domain.MeritRecord `json:"history"`
}

func meritCommand() *cli.Command {
	return &cli.Command{
		Name:  "merit",
		Usage: "Merit balance and ledger",
		Commands: []*cli.Command{
			{
				Name:  "history",
				Usage: "Show balance and ledger",
				Flags: []cli.Flag{jsonFlag()},
				Action: clientAction(func(ctx context.Context, c *cli.Command, cfg cliConfig, out *meritView) error {
					return doMeritHistory(ctx, cfg, out)
				}, func(v meritView) { printMeritHistory(v.Balance, v.History) }),
			},
			{
				Name:  "add",
				Usage: "Award merit",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "amount", Required: true},
					&cli.StringFlag{Name: "type", Value: string(domain.MeritPray)},
					&cli.StringFlag{Name: "desc"},
					jsonFlag(),
				},
				Action: clientAction(func(ctx context.Context, c *cli.Command, cfg cliConfig, out *domain.MeritRecord) error {
					return doMeritAdd(ctx, cfg, c.Int("amount"), c.String("type"), c.String("desc"), out)
				}, func(r domain.MeritRecord) {
					printKV([][2]string{{"id", r.ID}, {"type", string(r.Type)}, {"amount", fmt.Sprint(r.Amount)}})
				}),
			},
			{
				Name:  "consume",
				Usage: "Spend merit",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "amount", Required: true},
					&cli.StringFlag{Name: "desc"},
					jsonFlag(),
				},
				Action: clientAction(func(ctx context.Context, c *cli.Command, cfg cliConfig, out *map[string]any) error {
					return doMeritConsume(ctx, cfg, c.Int("amount"), c.String("desc"), out)
				}, func(m map[string]any) { fmt.Printf("balance: %v\n", m["balance"]) }),
			},
		},
	}
}

type dailyView struct {
	Found  bool                `json:"found"`
	Record *domain.DailyRecord `json:"record,omitempty"`
}

func dailyCommand() *cli.Command {
	return &cli.Command{
		Name:  "daily",
		Usage: "Daily self-report",
		Commands: []*cli.Command{
			{
				Name:  "submit",
				Usage: "Record today's state, energy and sleep",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "state", Required: true, Usage: "steady|advance|retreat"},
					&cli.StringFlag{Name: "energy", Required: true, Usage: "low|medium|high"},
					&cli.StringFlag{Name: "sleep", Required: true, Usage: "poor|fair|good"},
					jsonFlag(),
				},
				Action: clientAction(func(ctx context.Context, c *cli.Command, cfg cliConfig, out *domain.DailyRecord) error {
					return doDailySubmit(ctx, cfg, c.String("state"), c.String("energy"), c.String("sleep"), out)
				}, printDailyRecord),
			},
			{
				Name:  "show",
				Usage: "Show today's record",
				Flags: []cli.Flag{jsonFlag()},
				Action: clientAction(func(ctx context.Context, c *cli.Command, cfg cliConfig, out *dailyView) error {
					return doDailyShow(ctx, cfg, out)
				}, func(v dailyView) {
					if !v.Found || v.Record == nil {
						fmt.Println("no record today")
						return
					}
					printDailyRecord(*v.Record)
				}),
			},
		},
	}
}

func printDailyRecord(r domain.DailyRecord) {
	printKV([][2]string{{"date", r.Date}, {"state", string(r.State)}, {"energy", string(r.Energy)}, {"sleep", string(r.Sleep)}})
}

func insightCommand() *cli.Command {
	return &cli.Command{
		Name:  "insight",
		Usage: "Insight quota and history",
		Commands: []*cli.Command{
			{
				Name:  "availability",
				Usage: "Check whether another insight is available today",
				Flags: []cli.Flag{jsonFlag()},
				Action: clientAction(func(ctx context.Context, c *cli.Command, cfg cliConfig, out *domain.InsightAvailability) error {
					return doInsightAvailability(ctx, cfg, out)
				}, func(a domain.InsightAvailability) {
					printKV([][2]string{{"available", fmt.Sprint(a.Available)}, {"reason", string(a.Reason)}})
				}),
			},
			{
				Name:  "add",
				Usage: "Store an answered question",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "category", Value: string(domain.InsightRandom)},
					&cli.StringFlag{Name: "question", Required: true},
					&cli.StringFlag{Name: "answer"},
					jsonFlag(),
				},
				Action: clientAction(func(ctx context.Context, c *cli.Command, cfg cliConfig, out *domain.InsightRecord) error {
					return doInsightAdd(ctx, cfg, map[string]string{
						"category": c.String("category"),
						"question": c.String("question"),
						"answer":   c.String("answer"),
					}, out)
				}, func(r domain.InsightRecord) { printInsightHistory([]domain.InsightRecord{r}) }),
			},
			{
				Name:  "history",
				Usage: "List stored insights",
				Flags: []cli.Flag{jsonFlag()},
				Action: clientAction(func(ctx context.Context, c *cli.Command, cfg cliConfig, out *[]domain.InsightRecord) error {
					return doInsightHistory(ctx, cfg, out)
				}, printInsightHistory),
			},
		},
	}
}

func ritualCommand() *cli.Command {
	return &cli.Command{
		Name:  "ritual",
		Usage: "Cast hexagrams",
		Commands: []*cli.Command{
			{
				Name:  "begin",
				Usage: "Open a manual session",
				Flags: []cli.Flag{&cli.StringFlag{Name: "question"}, jsonFlag()},
				Action: clientAction(func(ctx context.Context, c *cli.Command, cfg cliConfig, out *application.RitualSession) error {
					return doRitualBegin(ctx, cfg, c.String("question"), out)
				}, printRitualSession),
			},
			{
				Name:  "shake",
				Usage: "Draw the next line of an open session",
				Flags: []cli.Flag{&cli.StringFlag{Name: "id", Required: true}, jsonFlag()},
				Action: clientAction(func(ctx context.Context, c *cli.Command, cfg cliConfig, out *application.RitualSession) error {
					return doRitualShake(ctx, cfg, c.String("id"), out)
				}, printRitualSession),
			},
			{
				Name:  "cast",
				Usage: "Draw all six lines at once",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "question"},
					&cli.BoolFlag{Name: "auto", Usage: "wait the automatic ritual delay first"},
					jsonFlag(),
				},
				Action: clientAction(func(ctx context.Context, c *cli.Command, cfg cliConfig, out *application.RitualSession) error {
					return doRitualCast(ctx, cfg, c.String("question"), c.Bool("auto"), out)
				}, printRitualSession),
			},
			{
				Name:  "decide",
				Usage: fmt.Sprintf("Spend %d merit on a single-draw decision reading", application.DecisionCost),
				Flags: []cli.Flag{&cli.StringFlag{Name: "question", Required: true}, jsonFlag()},
				Action: clientAction(func(ctx context.Context, c *cli.Command, cfg cliConfig, out *application.Decision) error {
					return doRitualDecide(ctx, cfg, c.String("question"), out)
				}, printDecision),
			},
			{
				Name:  "history",
				Usage: "List past rituals",
				Flags: []cli.Flag{jsonFlag()},
				Action: clientAction(func(ctx context.Context, c *cli.Command, cfg cliConfig, out *[]domain.RitualRecord) error {
					return doRitualHistory(ctx, cfg, out)
				}, printRitualHistory),
			},
		},
	}
}

func hexagramCommand() *cli.Command {
	return &cli.Command{
		Name:  "hexagram",
		Usage: "Browse the hexagram knowledge base",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "All 64 hexagrams in King Wen order",
				Flags: []cli.Flag{jsonFlag()},
				Action: clientAction(func(ctx context.Context, c *cli.Command, cfg cliConfig, out *[]application.HexagramEntry) error {
					return doHexagramList(ctx, cfg, out)
				}, printHexagramList),
			},
			{
				Name:  "show",
				Usage: "One hexagram with its line texts",
				Flags: []cli.Flag{&cli.IntFlag{Name: "id", Required: true, Usage: "1-64"}, jsonFlag()},
				Action: clientAction(func(ctx context.Context, c *cli.Command, cfg cliConfig, out *application.HexagramEntry) error {
					return doHexagramShow(ctx, cfg, c.Int("id"), out)
				}, printHexagramEntry),
			},
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Dump every stored document as JSON",
		Flags: []cli.Flag{&cli.StringFlag{Name: "out", Usage: "write to a file instead of stdout"}},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := clientConfig(c)
			if err != nil {
				return err
			}
			var export application.StateExport
			if err := doExport(ctx, cfg, &export); err != nil {
				return err
			}
			path := c.String("out")
			if path == "" {
				return printJSON(export)
			}
			data, err := json.MarshalIndent(export, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, data, 0o600); err != nil {
				return err
			}
			fmt.Printf("exported %d entries to %s\n", len(export.Entries), path)
			return nil
		},
	}
}

func archivesCommand() *cli.Command {
	return &cli.Command{
		Name:  "archives",
		Usage: "Insights and rituals, newest first",
		Flags: []cli.Flag{jsonFlag()},
		Action: clientAction(func(ctx context.Context, c *cli.Command, cfg cliConfig, out *[]domain.ArchiveEntry) error {
			return doArchives(ctx, cfg, out)
		}, printArchives),
	}
}

func guardianCommand() *cli.Command {
	return &cli.Command{
		Name:  "guardian",
		Usage: "Daily lamp check-in",
		Commands: []*cli.Command{
			{
				Name:  "checkin",
				Usage: "Light the lamp for today",
				Flags: []cli.Flag{jsonFlag()},
				Action: clientAction(func(ctx context.Context, c *cli.Command, cfg cliConfig, out *domain.GuardianResult) error {
					return doGuardianCheckIn(ctx, cfg, out)
				}, func(r domain.GuardianResult) {
					printKV([][2]string{{"reward", fmt.Sprint(r.Reward)}, {"checked_in_at", formatTime(r.CheckedInAt)}})
				}),
			},
			{
				Name:  "status",
				Usage: "Show the check-in window",
				Flags: []cli.Flag{jsonFlag()},
				Action: clientAction(func(ctx context.Context, c *cli.Command, cfg cliConfig, out *domain.GuardianStatus) error {
					return doGuardianStatus(ctx, cfg, out)
				}, printGuardianStatus),
			},
		},
	}
}

func energyCommand() *cli.Command {
	return &cli.Command{
		Name:  "energy",
		Usage: "Nudge the current five-element energy",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "action", Required: true, Usage: "guardian_early|guardian_late|ritual_late|ritual_frequent|merit_gain"},
			jsonFlag(),
		},
		Action: clientAction(func(ctx context.Context, c *cli.Command, cfg cliConfig, out *domain.ElementVector) error {
			return doEnergyUpdate(ctx, cfg, c.String("action"), out)
		}, func(v domain.ElementVector) { fmt.Println(formatElements(v)) }),
	}
}

func destinyCommand() *cli.Command {
	return &cli.Command{
		Name:  "destiny",
		Usage: "Derived daily readings",
		Commands: []*cli.Command{
			{
				Name:  "today",
				Usage: "Today's hexagram, advice and solar term",
				Flags: []cli.Flag{jsonFlag()},
				Action: clientAction(func(ctx context.Context, c *cli.Command, cfg cliConfig, out *application.Today) error {
					return doToday(ctx, cfg, out)
				}, printToday),
			},
			{
				Name:  "forecast",
				Usage: "Seven-day energy forecast",
				Flags: []cli.Flag{jsonFlag()},
				Action: clientAction(func(ctx context.Context, c *cli.Command, cfg cliConfig, out *[]destiny.DailyEnergy) error {
					return doForecast(ctx, cfg, out)
				}, printForecast),
			},
		},
	}
}

func oracleCommand() *cli.Command {
	return &cli.Command{
		Name:  "oracle",
		Usage: "Ask the language and vision models",
		Commands: []*cli.Command{
			{
				Name:  "chat",
				Usage: "Send one user message",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "message", Required: true},
					&cli.StringFlag{Name: "system", Usage: "optional system prompt"},
					jsonFlag(),
				},
				Action: clientAction(func(ctx context.Context, c *cli.Command, cfg cliConfig, out *application.ChatResult) error {
					var messages []domain.ChatMessage
					if s := c.String("system"); s != "" {
						messages = append(messages, domain.ChatMessage{Role: "system", Content: s})
					}
					messages = append(messages, domain.ChatMessage{Role: "user", Content: c.String("message")})
					return doChat(ctx, cfg, application.ChatRequest{Messages: messages}, out)
				}, func(r application.ChatResult) { fmt.Println(r.Message) }),
			},
			{
				Name:  "vision",
				Usage: "Interpret an image file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "image", Required: true, Usage: "path to an image"},
					&cli.StringFlag{Name: "prompt"},
					jsonFlag(),
				},
				Action: clientAction(func(ctx context.Context, c *cli.Command, cfg cliConfig, out *application.VisionResult) error {
					data, err := readImage(c.String("image"))
					if err != nil {
						return err
					}
					return doVision(ctx, cfg, application.VisionRequest{ImageData: data, CustomPrompt: c.String("prompt")}, out)
				}, func(r application.VisionResult) {
					printKV([][2]string{{"image", r.ImageURL}})
					fmt.Println(r.Interpretation)
				}),
			},
			{
				Name:  "divination",
				Usage: "Read an event through an image",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "image", Required: true, Usage: "path to an image"},
					&cli.StringFlag{Name: "event", Required: true},
					jsonFlag(),
				},
				Action: clientAction(func(ctx context.Context, c *cli.Command, cfg cliConfig, out *application.DivinationResult) error {
					data, err := readImage(c.String("image"))
					if err != nil {
						return err
					}
					return doDivination(ctx, cfg, application.DivinationRequest{ImageData: data, EventDescription: c.String("event")}, out)
				}, func(r application.DivinationResult) {
					printKV([][2]string{{"image", r.ImageURL}})
					fmt.Println(r.Analysis)
				}),
			},
		},
	}
}

func readImage(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

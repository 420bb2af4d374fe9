package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/pechorka/chatik/internal/bootstrap"
	"github.com/pechorka/chatik/internal/models"
	"github.com/pechorka/chatik/pkg/i18n"
	"github.com/pechorka/chatik/pkg/watcher"
)

type config struct {
	BaseURL  string `json:"base_url"`
	DBPath   string `json:"db_path"`
	Secret   string `json:"secret"`
	Lang     string `json:"lang"`
	I18nPath string `json:"i18n_path"`
}

func readCfg(path string) (*config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var c config
	if err := json.NewDecoder(f).Decode(&c); err != nil {
		return nil, err
	}

	return &c, nil
}

func main() {
	if err := run(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

type printNotifier struct{}

func (printNotifier) Notify(text string) {
	fmt.Println("!", text)
}

type printNavigator struct{}

func (printNavigator) ToChat() {
	fmt.Println("--- chats (use `chats` to list them) ---")
}

func (printNavigator) ToSignIn() {
	fmt.Println("--- sign in (use `signin <username> <password>`) ---")
}

func run() error {
	cfgPath := "./cfg.json"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	cfg, err := readCfg(cfgPath)
	if err != nil {
		return err
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./tokens.db"
	}

	loc := i18n.New()
	if cfg.I18nPath != "" {
		w, err := watcher.LoadAndWatch(cfg.I18nPath, loc, func(err error) {
			log.Println("i18n reload:", err)
		})
		if err != nil {
			return err
		}
		defer w.Close()
	}

	app, err := bootstrap.New(bootstrap.Config{
		BaseURL:   cfg.BaseURL,
		DBPath:    cfg.DBPath,
		Secret:    cfg.Secret,
		Lang:      cfg.Lang,
		Notifier:  printNotifier{},
		Navigator: printNavigator{},
		Localies:  loc,
	})
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := context.Background()

	restored, err := app.Session.Restore()
	if err != nil {
		return err
	}
	if restored && app.Session.CurrentUser(ctx) != nil {
		fmt.Printf("signed in as %s\n", app.Session.DisplayName())
	} else {
		printNavigator{}.ToSignIn()
	}

	repl(ctx, app)
	return nil
}

func repl(ctx context.Context, app *bootstrap.App) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("type `help` for commands")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		args := strings.Fields(scanner.Text())
		if len(args) == 0 {
			continue
		}
		switch cmd, rest := args[0], args[1:]; cmd {
		case "help":
			printHelp()
		case "signin":
			if len(rest) != 2 {
				fmt.Println("usage: signin <username> <password>")
				continue
			}
			app.Session.SignIn(ctx, rest[0], rest[1])
		case "signup":
			if len(rest) != 3 {
				fmt.Println("usage: signup <username> <password> <password-confirm>")
				continue
			}
			app.Session.SignUp(ctx, rest[0], rest[1], rest[2])
		case "signout":
			app.Session.SignOut(ctx)
		case "me":
			if user := app.Session.CurrentUser(ctx); user != nil {
				fmt.Printf("%s (id %d)\n", app.Session.DisplayName(), user.ID)
			}
		case "chats":
			for _, chat := range app.Chats.List(ctx) {
				printChat(chat)
			}
		case "messages":
			if len(rest) == 0 {
				fmt.Println("usage: messages <chat-id> [limit [offset]]")
				continue
			}
			chatID, limit, offset, err := parseMessagesArgs(rest)
			if err != nil {
				fmt.Println(err)
				continue
			}
			for _, message := range app.Chats.Messages(ctx, chatID, limit, offset) {
				fmt.Printf("[%s] %d: %s\n", message.CreatedAt, message.AuthorID, message.Content)
			}
		case "search":
			if len(rest) != 1 {
				fmt.Println("usage: search <query>")
				continue
			}
			for _, user := range app.Session.SearchUsers(ctx, rest[0]) {
				fmt.Printf("%d: %s\n", user.ID, user.Username)
			}
		case "delete":
			if len(rest) != 1 {
				fmt.Println("usage: delete <chat-id>")
				continue
			}
			chatID, err := strconv.ParseInt(rest[0], 10, 64)
			if err != nil {
				fmt.Println("bad chat id:", rest[0])
				continue
			}
			app.Chats.Delete(ctx, chatID)
		case "quit", "exit":
			return
		default:
			fmt.Println("unknown command, type `help`")
		}
	}
}

func parseMessagesArgs(args []string) (chatID int64, limit, offset int, err error) {
	chatID, err = strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("bad chat id: %s", args[0])
	}
	if len(args) > 1 {
		if limit, err = strconv.Atoi(args[1]); err != nil {
			return 0, 0, 0, fmt.Errorf("bad limit: %s", args[1])
		}
	}
	if len(args) > 2 {
		if offset, err = strconv.Atoi(args[2]); err != nil {
			return 0, 0, 0, fmt.Errorf("bad offset: %s", args[2])
		}
	}
	return chatID, limit, offset, nil
}

func printChat(chat models.Chat) {
	fmt.Printf("%d: %s", chat.ID, chat.Name)
	if chat.PreviewMessage != nil {
		preview := chat.PreviewMessage.Content
		if len(preview) > 40 {
			preview = preview[:40] + "..."
		}
		fmt.Printf(" | %s", preview)
	}
	fmt.Println()
}

func printHelp() {
	fmt.Println(`signin <username> <password>
signup <username> <password> <password-confirm>
signout
me
chats
messages <chat-id> [limit [offset]]
search <query>
delete <chat-id>
quit`)
}

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/matheus3301/msgr/internal/chat"
	"github.com/matheus3301/msgr/internal/client"
	"github.com/matheus3301/msgr/internal/remote"
)

var passwordFlag string

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Sign in and save the session",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return authenticate(remote.Login, args[0])
	},
}

var registerCmd = &cobra.Command{
	Use:   "register <username>",
	Short: "Create an account and save the session",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return authenticate(remote.Register, args[0])
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved session",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return withClient(func(_ context.Context, c *client.Client) error {
			if err := c.Logout(); err != nil {
				return err
			}
			fmt.Println("Signed out.")
			return nil
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed in user",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return withClient(func(_ context.Context, c *client.Client) error {
			ident, ok := c.Identity()
			if !ok {
				return chat.ErrNotAuthenticated
			}
			if jsonOut {
				return outputJSON(toUser(ident))
			}
			fmt.Printf("%s (id %s)\n", ident.DisplayName, ident.ID)
			return nil
		})
	},
}

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "List conversations, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			if err := c.RefreshChats(ctx); err != nil {
				return err
			}
			convs := c.Store().Conversations()
			if jsonOut {
				out := make([]conversationOut, 0, len(convs))
				for _, cv := range convs {
					out = append(out, toConversation(cv))
				}
				return outputJSON(out)
			}
			if len(convs) == 0 {
				fmt.Println("No conversations.")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tWITH\tUNREAD\tLAST")
			for _, cv := range convs {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", cv.ID, cv.Counterpart.DisplayName, cv.UnreadCount, oneLine(cv.LastMessagePreview))
			}
			return w.Flush()
		})
	},
}

var messagesCmd = &cobra.Command{
	Use:   "messages <chat-id>",
	Short: "Print a conversation's history and mark it read",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		id := args[0]
		return withClient(func(ctx context.Context, c *client.Client) error {
			if err := c.RefreshChats(ctx); err != nil {
				return err
			}
			if _, ok := c.Store().Conversation(id); !ok {
				return fmt.Errorf("conversation %s not found", id)
			}
			c.Select(id)
			if err := c.RefreshMessages(ctx, id); err != nil {
				return err
			}
			msgs := c.Store().Messages(id)
			if jsonOut {
				out := make([]messageOut, 0, len(msgs))
				for _, m := range msgs {
					out = append(out, toMessage(m))
				}
				return outputJSON(out)
			}
			self, _ := c.Identity()
			for _, m := range msgs {
				who := "them"
				if m.SenderID == self.ID {
					who = "me"
				}
				fmt.Printf("[%s] %-4s %s\n", m.CreatedAt.Local().Format(time.DateTime), who, m.Body)
			}
			return nil
		})
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <chat-id> <text>...",
	Short: "Send a message",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		id, body := args[0], strings.Join(args[1:], " ")
		return withClient(func(ctx context.Context, c *client.Client) error {
			m, err := c.Send(ctx, id, body)
			if err != nil {
				return err
			}
			if jsonOut {
				return outputJSON(toMessage(m))
			}
			fmt.Printf("Sent (message %s).\n", m.ID)
			return nil
		})
	},
}

var startCmd = &cobra.Command{
	Use:   "start <user-id>",
	Short: "Open a conversation with a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			id, err := c.StartConversation(ctx, args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return outputJSON(map[string]string{"chat_id": id})
			}
			fmt.Println(id)
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <chat-id>",
	Short: "Delete a conversation and its messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			if err := c.DeleteConversation(ctx, args[0]); err != nil {
				return err
			}
			fmt.Println("Deleted.")
			return nil
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find users by name",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			users, err := c.SearchNow(ctx, args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				out := make([]userOut, 0, len(users))
				for _, u := range users {
					out = append(out, toUser(u))
				}
				return outputJSON(out)
			}
			if len(users) == 0 {
				fmt.Println("No users found.")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUSERNAME\tSTATUS")
			for _, u := range users {
				fmt.Fprintf(w, "%s\t%s\t%s\n", u.ID, u.DisplayName, u.Presence)
			}
			return w.Flush()
		})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{loginCmd, registerCmd} {
		cmd.Flags().StringVarP(&passwordFlag, "password", "p", "", "password (prompted when omitted)")
	}
}

func authenticate(mode remote.AuthMode, username string) error {
	password, err := readPassword()
	if err != nil {
		return err
	}
	return withClient(func(ctx context.Context, c *client.Client) error {
		var ident chat.Identity
		if mode == remote.Register {
			ident, err = c.Register(ctx, username, password)
		} else {
			ident, err = c.Login(ctx, username, password)
		}
		if err != nil {
			return err
		}
		if jsonOut {
			return outputJSON(toUser(ident))
		}
		fmt.Printf("Signed in as %s (id %s).\n", ident.DisplayName, ident.ID)
		return nil
	})
}

func readPassword() (string, error) {
	if passwordFlag != "" {
		return passwordFlag, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no terminal to prompt for a password, use --password")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > 40 {
		return string(r[:39]) + "…"
	}
	return s
}

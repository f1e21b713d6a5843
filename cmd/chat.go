package cmd

import (
	"fmt"
	"strings"

	"github.com/iksnae/libra-session/internal"
	"github.com/spf13/cobra"
)

var (
	chatNewName     string
	chatSendContext string
)

// chatCmd groups the assistant thread commands
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the legal assistant",
	Long: `Manage local assistant threads and send messages.

Threads are stored locally. Thread IDs can be given in full or by any unique
prefix or suffix as shown by 'chat list'.`,
}

var chatNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Start a new thread and select it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		thread, err := a.chats.CreateThread(ctx)
		if err != nil {
			return err
		}
		if err := a.chats.RenameThread(ctx, thread.ID, chatNewName); err != nil {
			return err
		}
		thread, err = a.chats.Thread(thread.ID)
		if err != nil {
			return err
		}
		internal.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Created %s (%s)", thread.Name, thread.ID))
		return nil
	},
}

var chatRenameCmd = &cobra.Command{
	Use:   "rename <thread-id> <name...>",
	Short: "Rename a thread",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := resolveThreadID(a.chats, args[0])
		if err != nil {
			return err
		}
		name := strings.TrimSpace(strings.Join(args[1:], " "))
		if name == "" {
			internal.PrintWarning(cmd.ErrOrStderr(), "Empty name, thread left unchanged")
			return nil
		}
		if err := a.chats.RenameThread(ctx, id, name); err != nil {
			return err
		}
		internal.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Renamed to %s", name))
		return nil
	},
}

var chatDeleteCmd = &cobra.Command{
	Use:   "delete <thread-id>",
	Short: "Delete a thread",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := resolveThreadID(a.chats, args[0])
		if err != nil {
			return err
		}
		if err := a.chats.DeleteThread(ctx, id); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		internal.PrintSuccess(out, fmt.Sprintf("Deleted %s", id))
		if current, ok := a.chats.Current(); ok {
			internal.PrintInfo(out, fmt.Sprintf("Active thread: %s (%s)", current.Name, current.ID))
		}
		return nil
	},
}

var chatSelectCmd = &cobra.Command{
	Use:   "select <thread-id>",
	Short: "Make a thread the active one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := resolveThreadID(a.chats, args[0])
		if err != nil {
			return err
		}
		if err := a.chats.SelectThread(ctx, id); err != nil {
			return err
		}
		thread, _ := a.chats.Current()
		internal.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Active thread: %s", thread.Name))
		return nil
	},
}

var chatSendCmd = &cobra.Command{
	Use:   "send <message...>",
	Short: "Send a message to the assistant in the active thread",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		if strings.TrimSpace(text) == "" {
			return nil
		}

		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		a.auth.Boot(ctx)
		if err := a.auth.RequireAuthed(); err != nil {
			return fmt.Errorf("%w (run 'libra-session login' first)", err)
		}

		if err := a.chats.EnsureAtLeastOneThread(ctx); err != nil {
			return err
		}
		if cmd.Flags().Changed("context") {
			a.chats.SetCaseContext(chatSendContext)
		}

		var reply *internal.ChatMessage
		err = internal.ShowProgress(ctx, "Waiting for the assistant", func() error {
			var sendErr error
			reply, sendErr = a.chats.SendMessage(ctx, text)
			return sendErr
		})
		if err != nil {
			return err
		}
		if reply != nil {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, assistantMessageStyle.Render("🤖 Assistant"))
			fmt.Fprintln(out, messageContentStyle.Render(reply.Text))
		}
		return nil
	},
}

// resolveThreadID maps a full id, or a unique prefix or suffix, to a thread id.
func resolveThreadID(chats *internal.ChatManager, arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", fmt.Errorf("thread id is required")
	}

	var matches []string
	for _, t := range chats.Threads() {
		if t.ID == arg {
			return t.ID, nil
		}
		if strings.HasPrefix(t.ID, arg) || strings.HasSuffix(t.ID, arg) {
			matches = append(matches, t.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s (use 'libra-session chat list' to see available threads)", internal.ErrThreadNotFound, arg)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("thread id %s is ambiguous (%d matches)", arg, len(matches))
	}
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.AddCommand(chatNewCmd, chatRenameCmd, chatDeleteCmd, chatSelectCmd, chatSendCmd)

	chatNewCmd.Flags().StringVar(&chatNewName, "name", "", "Name for the new thread")
	chatSendCmd.Flags().StringVar(&chatSendContext, "context", "", "Case text sent along with the message")
}

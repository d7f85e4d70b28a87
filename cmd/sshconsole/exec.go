package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"sshConsole/internal/api"
	"sshConsole/internal/session"
	"sshConsole/internal/ui"
	"sshConsole/internal/utils"

	"github.com/spf13/cobra"
)

var execCmd = &cobra.Command{
	Use:   "exec <host> <command...>",
	Short: "Run one command on a saved host and print the transcript",
	Long: `Open a session on the host, send the command, wait until the output
goes quiet or the remote side closes, print the transcript and close the
session.

Examples:
  sshconsole exec web1 uptime
  sshconsole exec db1 --quiet 3s -- df -h`,
	Args: cobra.MinimumNArgs(2),
	RunE: runExec,
}

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Browse and download remote files",
}

var filesListCmd = &cobra.Command{
	Use:   "ls <host> [path]",
	Short: "List a remote directory (default: home)",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runFilesList,
}

var filesGetCmd = &cobra.Command{
	Use:   "get <host> <remote-path> [local-path]",
	Short: "Download a remote file",
	Args:  cobra.RangeArgs(2, 3),
	RunE:  runFilesGet,
}

func init() {
	execCmd.Flags().Duration("quiet", 2*time.Second, "Stop waiting once no output arrived for this long")
	execCmd.Flags().Duration("timeout", time.Minute, "Give up waiting after this long")

	filesCmd.AddCommand(filesListCmd, filesGetCmd)
}

// remoteSession is an open session on a saved host.
type remoteSession struct {
	env     *cliEnv
	backend *api.Client
	session *session.Session
}

func openRemoteSession(ctx context.Context, hostName string) (*remoteSession, error) {
	env, err := setup(false)
	if err != nil {
		return nil, err
	}
	host, _, err := env.cfg.FindHostByName(hostName)
	if err != nil {
		env.Close()
		return nil, err
	}
	target, err := env.cfg.ResolveTarget(host, env.cipher)
	if err != nil {
		env.Close()
		return nil, err
	}
	backend, err := env.backend()
	if err != nil {
		env.Close()
		return nil, err
	}

	s := session.New(session.Config{
		Backend:      backend,
		PollInterval: env.cfg.PollInterval(),
		Logger:       env.logger,
	})
	if err := s.Open(ctx, target); err != nil {
		fmt.Fprint(os.Stderr, s.Transcript())
		env.Close()
		return nil, err
	}
	return &remoteSession{env: env, backend: backend, session: s}, nil
}

func (r *remoteSession) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), closeOnExitTimeout)
	defer cancel()
	if err := r.session.Close(ctx); err != nil {
		r.env.logger.Warn("close session failed", "error", err)
	}
	r.env.Close()
}

// waitQuiet returns once s saw no update for quiet, disconnected, or
// timeout passed.
func waitQuiet(ctx context.Context, s *session.Session, quiet, timeout time.Duration) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	idle := time.NewTimer(quiet)
	defer idle.Stop()

	for {
		select {
		case <-s.Updates():
			if s.State() != session.StateConnected {
				return
			}
			idle.Reset(quiet)
		case <-idle.C:
			return
		case <-deadline.C:
			return
		case <-ctx.Done():
			return
		}
	}
}

func runExec(cmd *cobra.Command, args []string) error {
	quiet, _ := cmd.Flags().GetDuration("quiet")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	r, err := openRemoteSession(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer r.Close()

	command := strings.Join(args[1:], " ")
	submitErr := r.session.Submit(cmd.Context(), command)
	if submitErr == nil {
		waitQuiet(cmd.Context(), r.session, quiet, timeout)
	}

	fmt.Fprint(cmd.OutOrStdout(), r.session.Transcript())
	return submitErr
}

func runFilesList(cmd *cobra.Command, args []string) error {
	dir := "~"
	if len(args) > 1 {
		dir = args[1]
	}

	r, err := openRemoteSession(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer r.Close()

	files, err := r.backend.ListFiles(cmd.Context(), r.session.SessionID(), dir)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(files))
	for _, f := range files {
		name := f.Name
		if f.IsDir {
			name += "/"
		}
		rows = append(rows, []string{f.Mode, fmt.Sprintf("%d", f.Size), f.ModTime.Format("2006-01-02 15:04"), name})
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.CreateLipglossTable([]string{"Mode", "Size", "Modified", "Name"}, rows))
	return nil
}

func runFilesGet(cmd *cobra.Command, args []string) error {
	remotePath := args[1]
	dest := ""
	if len(args) > 2 {
		dest = args[2]
	}
	destIsDir := false
	if dest != "" {
		if info, err := os.Stat(dest); err == nil && info.IsDir() {
			destIsDir = true
		}
	}
	localPath := utils.LocalDownloadPath(remotePath, dest, destIsDir)

	r, err := openRemoteSession(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer r.Close()

	f, err := os.OpenFile(localPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	n, err := r.backend.DownloadFile(cmd.Context(), r.session.SessionID(), remotePath, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(localPath)
		return errors.Join(fmt.Errorf("download %s failed", remotePath), err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d bytes)\n", localPath, n)
	return nil
}

package main

import (
	"fmt"
	"strings"

	"sshConsole/internal/config"
	"sshConsole/internal/models"
	"sshConsole/internal/sync"
	"sshConsole/internal/ui"

	"github.com/spf13/cobra"
)

var hostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "Manage saved hosts",
}

var hostsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved hosts",
	Args:  cobra.NoArgs,
	RunE:  listHosts,
}

var hostsAddCmd = &cobra.Command{
	Use:   "add <name> <user@address[:port]>",
	Short: "Add a host",
	Long: `Add a host to the config. Exactly one of --key or --password-desc is
required; --password-desc stores a new password read from the terminal or
reuses a stored one with the same description.

Examples:
  sshconsole hosts add web1 deploy@10.0.0.5 --key ~/.ssh/id_ed25519
  sshconsole hosts add db1 root@db.internal:2222 --password-desc db-root`,
	Args: cobra.ExactArgs(2),
	RunE: addHost,
}

var hostsRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a host",
	Args:    cobra.ExactArgs(1),
	RunE:    removeHost,
}

var hostsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull the server inventory from the dashboard",
	Long: `Merge the dashboard's server list into the saved hosts. Existing hosts
keep their credentials. New servers are only added when --password or --key
names a stored credential to give them.`,
	Args: cobra.NoArgs,
	RunE: syncHosts,
}

func init() {
	hostsAddCmd.Flags().String("key", "", "Private key path on the gateway")
	hostsAddCmd.Flags().String("password-desc", "", "Description of the password to use")
	hostsAddCmd.Flags().String("description", "", "Free text description")

	hostsSyncCmd.Flags().String("password", "", "Stored password (by description) for new servers")
	hostsSyncCmd.Flags().String("key", "", "Stored key (by description or path) for new servers")
	hostsSyncCmd.Flags().Bool("prune", false, "Remove hosts that are not in the inventory")

	hostsCmd.AddCommand(hostsListCmd, hostsAddCmd, hostsRemoveCmd, hostsSyncCmd)
}

func listHosts(cmd *cobra.Command, args []string) error {
	env, err := setup(true)
	if err != nil {
		return err
	}
	defer env.Close()

	hosts := env.cfg.GetHosts()
	if len(hosts) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No hosts configured.")
		return nil
	}

	rows := make([][]string, 0, len(hosts))
	for _, h := range hosts {
		auth := "password"
		if h.UsesKey() {
			auth = "key"
		}
		port := h.Port
		if port == "" {
			port = models.DefaultSSHPort
		}
		rows = append(rows, []string{h.Name, h.Login + "@" + h.IP + ":" + port, auth, h.Description})
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.CreateLipglossTable([]string{"Name", "Address", "Auth", "Description"}, rows))
	return nil
}

// parseAddress splits user@address[:port].
func parseAddress(s string) (login, ip, port string, err error) {
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 {
		return "", "", "", fmt.Errorf("address %q must look like user@host[:port]", s)
	}
	login, ip = s[:at], s[at+1:]
	if strings.HasPrefix(ip, "[") {
		end := strings.Index(ip, "]")
		if end < 0 {
			return "", "", "", fmt.Errorf("address %q has an unterminated IPv6 bracket", s)
		}
		rest := ip[end+1:]
		ip = ip[1:end]
		if strings.HasPrefix(rest, ":") {
			port = rest[1:]
		}
		return login, ip, port, nil
	}
	if i := strings.LastIndex(ip, ":"); i >= 0 && strings.Count(ip, ":") == 1 {
		ip, port = ip[:i], ip[i+1:]
	}
	return login, ip, port, nil
}

func addHost(cmd *cobra.Command, args []string) error {
	keyPath, _ := cmd.Flags().GetString("key")
	passwordDesc, _ := cmd.Flags().GetString("password-desc")
	description, _ := cmd.Flags().GetString("description")
	if (keyPath == "") == (passwordDesc == "") {
		return fmt.Errorf("exactly one of --key or --password-desc is required")
	}

	login, ip, port, err := parseAddress(args[1])
	if err != nil {
		return err
	}
	host := models.Host{
		Name:        args[0],
		Description: description,
		Login:       login,
		IP:          ip,
		Port:        port,
		PasswordID:  models.NoCredential,
		KeyID:       models.NoCredential,
	}

	env, err := setup(keyPath != "")
	if err != nil {
		return err
	}
	defer env.Close()

	if keyPath != "" {
		host.KeyID, err = ensureKey(env.cfg, keyPath)
	} else {
		host.PasswordID, err = ensurePassword(env, passwordDesc)
	}
	if err != nil {
		return err
	}

	if err := env.cfg.AddHost(host); err != nil {
		return err
	}
	if err := env.cfg.Save(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Host %s added.\n", host.Name)
	return nil
}

func ensureKey(cfg *config.Manager, path string) (int, error) {
	if idx := findKey(cfg, path); idx != models.NoCredential {
		return idx, nil
	}
	key, err := models.NewKey(path, path)
	if err != nil {
		return models.NoCredential, err
	}
	return cfg.AddKey(*key)
}

func ensurePassword(env *cliEnv, description string) (int, error) {
	if idx := findPassword(env.cfg, description); idx != models.NoCredential {
		return idx, nil
	}
	plain, err := readPassphrase(fmt.Sprintf("Password for %q: ", description))
	if err != nil {
		return models.NoCredential, err
	}
	password, err := models.NewPassword(description, plain, env.cipher)
	if err != nil {
		return models.NoCredential, err
	}
	return env.cfg.AddPassword(*password)
}

func findPassword(cfg *config.Manager, description string) int {
	for i, p := range cfg.GetPasswords() {
		if p.Description == description {
			return i
		}
	}
	return models.NoCredential
}

func findKey(cfg *config.Manager, name string) int {
	for i, k := range cfg.GetKeys() {
		if k.Description == name || k.Path == name {
			return i
		}
	}
	return models.NoCredential
}

func removeHost(cmd *cobra.Command, args []string) error {
	env, err := setup(true)
	if err != nil {
		return err
	}
	defer env.Close()

	_, idx, err := env.cfg.FindHostByName(args[0])
	if err != nil {
		return err
	}
	if err := env.cfg.DeleteHost(idx); err != nil {
		return err
	}
	if err := env.cfg.Save(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Host %s removed.\n", args[0])
	return nil
}

func syncHosts(cmd *cobra.Command, args []string) error {
	passwordName, _ := cmd.Flags().GetString("password")
	keyName, _ := cmd.Flags().GetString("key")
	prune, _ := cmd.Flags().GetBool("prune")

	env, err := setup(true)
	if err != nil {
		return err
	}
	defer env.Close()

	opts := sync.Options{
		PasswordID: models.NoCredential,
		KeyID:      models.NoCredential,
		Prune:      prune,
		Logger:     env.logger,
	}
	if passwordName != "" {
		if opts.PasswordID = findPassword(env.cfg, passwordName); opts.PasswordID == models.NoCredential {
			return fmt.Errorf("no stored password named %q", passwordName)
		}
	}
	if keyName != "" {
		if opts.KeyID = findKey(env.cfg, keyName); opts.KeyID == models.NoCredential {
			return fmt.Errorf("no stored key named %q", keyName)
		}
	}

	backend, err := env.backend()
	if err != nil {
		return err
	}
	result, err := sync.SyncHosts(cmd.Context(), backend, env.cfg, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d added, %d updated, %d unchanged, %d removed, %d skipped\n",
		len(result.Added), len(result.Updated), len(result.Unchanged), len(result.Removed), len(result.Skipped))
	if len(result.Skipped) > 0 {
		fmt.Fprintf(out, "Skipped: %s\n", strings.Join(result.Skipped, ", "))
	}
	return nil
}

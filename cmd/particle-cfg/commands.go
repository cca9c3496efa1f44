package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dlkinney/particle-go/internal/build"
	"github.com/dlkinney/particle-go/internal/cloud"
	"github.com/dlkinney/particle-go/internal/config"
	"github.com/dlkinney/particle-go/internal/ui"
)

// Command flags
var (
	outputFormat  string
	accessToken   string
	apiBaseURL    string
	productID     int
	targetVersion string
	saveBinary    string
	showRawOutput bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, json)")
	rootCmd.PersistentFlags().StringVar(&accessToken, "token", "", "Access token (overrides stored credentials)")
	rootCmd.PersistentFlags().StringVar(&apiBaseURL, "api", cloud.DefaultBaseURL, "Cloud API base URL")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(deviceCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(flashCmd)
	rootCmd.AddCommand(monitorCmd)
}

// newCloudClient builds a client from the --token flag, the
// PARTICLE_ACCESS_TOKEN environment variable, or the stored session,
// in that order.
func newCloudClient() (*cloud.Client, error) {
	token := accessToken
	if token == "" {
		token = os.Getenv("PARTICLE_ACCESS_TOKEN")
	}
	if token == "" {
		registry, err := config.LoadRegistry()
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		token = registry.AccessToken()
	}
	if token == "" {
		return nil, fmt.Errorf("not logged in: run 'particle-cfg login' first")
	}
	return cloud.NewClientWithURL(apiBaseURL, cloud.StaticToken(token)), nil
}

// loginCmd exchanges account credentials for an access token
var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Log in to the Particle cloud",
	Long: `Exchange account credentials for an access token.

The password is read interactively and never stored; only the resulting
access token is written to the configuration file.`,
	Example: `  # Prompt for both username and password
  particle-cfg login

  # Prompt only for the password
  particle-cfg login someone@example.com`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

func runLogin(cmd *cobra.Command, args []string) error {
	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		fmt.Print("Username (email): ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read username: %w", err)
		}
		username = strings.TrimSpace(line)
	}
	if username == "" {
		return fmt.Errorf("username is required")
	}

	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	grant := cloud.NewPasswordGrant(username, string(password))
	token, err := grant.AccessToken()
	if err != nil {
		if cloud.IsAuthError(err) {
			return fmt.Errorf("login failed: invalid username or password")
		}
		return fmt.Errorf("login failed: %w", err)
	}

	registry, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	registry.SetAccessToken(username, token)
	if err := registry.Save(); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	fmt.Printf("✓ Logged in as %s\n", username)
	return nil
}

// logoutCmd discards the stored access token
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Discard the stored access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := config.LoadRegistry()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if registry.AccessToken() == "" {
			fmt.Println("Not logged in.")
			return nil
		}
		registry.ClearAccessToken()
		if err := registry.Save(); err != nil {
			return fmt.Errorf("failed to save configuration: %w", err)
		}
		fmt.Println("✓ Logged out.")
		return nil
	},
}

// devicesCmd lists all devices on the account
var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List devices on your account",
	Example: `  # List devices
  particle-cfg devices

  # JSON output for scripting
  particle-cfg devices --format json`,
	RunE: runDevices,
}

func runDevices(cmd *cobra.Command, args []string) error {
	client, err := newCloudClient()
	if err != nil {
		return err
	}

	devices, err := client.ListDevices()
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", cloudErr(err))
	}

	if outputFormat == "json" {
		return printJSON(devices)
	}

	if len(devices) == 0 {
		fmt.Println("No devices found on this account.")
		return nil
	}

	registry, _ := config.LoadRegistry()

	fmt.Printf("Found %d device(s):\n\n", len(devices))
	for i, device := range devices {
		name := device.Name
		if registry != nil {
			if local := registry.GetDevice(device.ID); local != nil && local.Nickname != "" {
				name = fmt.Sprintf("%s (%s)", device.Name, local.Nickname)
			}
		}
		state := "offline"
		if device.Connected {
			state = "online"
		}
		fmt.Printf("%d. %s [%s]\n", i+1, name, state)
		fmt.Printf("   ID:       %s\n", device.ID)
		if !device.LastHeard.IsZero() {
			fmt.Printf("   Last heard: %s\n", device.LastHeard.Local().Format("2006-01-02 15:04:05"))
		}
		fmt.Println()
	}

	fmt.Println("Use 'particle-cfg device <id>' for device details")
	return nil
}

// deviceCmd shows details for one device
var deviceCmd = &cobra.Command{
	Use:   "device <device-id>",
	Short: "Show device details",
	Args:  cobra.ExactArgs(1),
	RunE:  runDevice,
}

func runDevice(cmd *cobra.Command, args []string) error {
	client, err := newCloudClient()
	if err != nil {
		return err
	}

	device, err := client.GetDevice(args[0])
	if err != nil {
		return fmt.Errorf("failed to get device: %w", cloudErr(err))
	}

	if outputFormat == "json" {
		return printJSON(device)
	}

	state := "offline"
	if device.Connected {
		state = "online"
	}
	fmt.Printf("%s [%s]\n", device.Name, state)
	fmt.Printf("  ID:          %s\n", device.ID)
	fmt.Printf("  Platform:    %d\n", device.PlatformID)
	fmt.Printf("  Product:     %d\n", device.ProductID)
	if device.Status != "" {
		fmt.Printf("  Status:      %s\n", device.Status)
	}
	if device.SystemFirmwareVersion != "" {
		fmt.Printf("  Device OS:   %s\n", device.SystemFirmwareVersion)
	}
	if device.LastIPAddress != "" {
		fmt.Printf("  Last IP:     %s\n", device.LastIPAddress)
	}
	if !device.LastHeard.IsZero() {
		fmt.Printf("  Last heard:  %s\n", device.LastHeard.Local().Format("2006-01-02 15:04:05"))
	}

	if registry, err := config.LoadRegistry(); err == nil {
		if local := registry.GetDevice(device.ID); local != nil {
			if local.Nickname != "" {
				fmt.Printf("  Nickname:    %s\n", local.Nickname)
			}
			if !local.LastFlashed.IsZero() {
				fmt.Printf("  Last flash:  %s\n", local.LastFlashed.Local().Format("2006-01-02 15:04:05"))
			}
		}
	}

	return nil
}

// renameCmd renames a device in the cloud
var renameCmd = &cobra.Command{
	Use:   "rename <device-id> <name>",
	Short: "Rename a device",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newCloudClient()
		if err != nil {
			return err
		}
		if err := client.RenameDevice(args[0], args[1]); err != nil {
			return fmt.Errorf("rename failed: %w", cloudErr(err))
		}
		fmt.Printf("✓ Device renamed to %q\n", args[1])
		return nil
	},
}

// compileCmd compiles firmware sources in the cloud
var compileCmd = &cobra.Command{
	Use:   "compile <file|dir>...",
	Short: "Compile firmware sources in the cloud",
	Long: `Upload firmware sources and compile them with the cloud build farm.

Arguments may be individual source files or directories; directories are
searched for .ino, .cpp, .c, .h, .hpp, and project.properties files. On
success the firmware section sizes are reported and the binary can be
downloaded with --save. On a compile failure the compiler diagnostics are
classified and displayed, and the command exits nonzero.`,
	Example: `  # Compile a single sketch
  particle-cfg compile app.ino

  # Compile a project directory for a specific Device OS release
  particle-cfg compile ./firmware --target 2.3.1

  # Compile and keep the binary
  particle-cfg compile app.ino --save firmware.bin`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCompile,
}

func init() {
	compileCmd.Flags().IntVar(&productID, "product", 0, "Product/platform ID (default from config, else 6)")
	compileCmd.Flags().StringVar(&targetVersion, "target", "", "Device OS version to build against")
	compileCmd.Flags().StringVar(&saveBinary, "save", "", "Write the compiled binary to this path")
	compileCmd.Flags().BoolVar(&showRawOutput, "raw", false, "Show raw compiler output on failure")
}

func runCompile(cmd *cobra.Command, args []string) error {
	client, err := newCloudClient()
	if err != nil {
		return err
	}

	files, err := collectSources(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no source files found")
	}

	opts, err := compileOptions()
	if err != nil {
		return err
	}

	fmt.Println(ui.RenderHeader("CLOUD COMPILE", [][2]string{
		{"Sources", fmt.Sprintf("%d file(s)", len(files))},
		{"Product", fmt.Sprintf("%d", opts.ProductID)},
		{"Target", orDefault(opts.TargetVersion, "latest")},
	}))

	var result *build.BuildResult
	var binary []byte

	steps := []string{"Upload sources and compile"}
	if saveBinary != "" {
		steps = append(steps, "Download binary")
	}

	err = ui.RunProgress("Compiling...", steps, func(r *ui.Reporter) error {
		r.Start(0)
		var err error
		result, err = client.CompileSources(files, opts)
		if err != nil {
			r.Fail(0, cloud.ShortErrorMessage(err))
			return err
		}
		if !result.Succeeded() {
			r.Fail(0, "compiler reported errors")
			return nil
		}
		r.Complete(0, "")

		if saveBinary != "" {
			r.Start(1)
			binary, err = client.DownloadBinary(*result.Binary)
			if err != nil {
				r.Fail(1, cloud.ShortErrorMessage(err))
				return err
			}
			r.Complete(1, fmt.Sprintf("%d bytes", len(binary)))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("compile failed: %w", cloudErr(err))
	}

	if outputFormat == "json" {
		return printJSON(result)
	}

	if result.Succeeded() {
		details := [][2]string{
			{"Binary ID", result.Binary.BinaryID},
			{"Expires", result.Binary.Expires.Local().Format("2006-01-02 15:04:05")},
		}
		details = append(details, ui.RenderSizeReport(result.Binary.SizeInfo)...)
		fmt.Println(ui.RenderSuccessBox("Compile succeeded", details))

		if saveBinary != "" {
			if err := os.WriteFile(saveBinary, binary, 0o644); err != nil {
				return fmt.Errorf("failed to write binary: %w", err)
			}
			fmt.Printf("Binary written to %s\n", saveBinary)
		}
		return nil
	}

	failure := result.Failure
	fmt.Println(ui.RenderErrorBox("Compile failed", []string{ui.IssueSummary(failure.Issues)}))
	if len(failure.Issues) > 0 {
		fmt.Println()
		fmt.Println(ui.RenderIssues(failure.Issues))
	}
	if showRawOutput || len(failure.Issues) == 0 {
		raw := strings.Join(failure.Errors, "\n")
		if raw == "" {
			raw = failure.Output
		}
		if out := ui.RenderRawOutput(raw); out != "" {
			fmt.Println()
			fmt.Println(out)
		}
	}
	return fmt.Errorf("compilation reported %s", ui.IssueSummary(failure.Issues))
}

// flashCmd flashes firmware to a device over the air
var flashCmd = &cobra.Command{
	Use:   "flash <device-id> <file|dir>...",
	Short: "Flash firmware to a device over the air",
	Long: `Flash firmware to a device through the cloud.

A single .bin argument is sent as a precompiled binary; anything else is
treated as sources, compiled by the cloud, and flashed on success.`,
	Example: `  # Flash a precompiled binary
  particle-cfg flash 0123456789abcdef01234567 firmware.bin

  # Compile sources and flash the result
  particle-cfg flash 0123456789abcdef01234567 app.ino`,
	Args: cobra.MinimumNArgs(2),
	RunE: runFlash,
}

func init() {
	flashCmd.Flags().IntVar(&productID, "product", 0, "Product/platform ID (default from config, else 6)")
	flashCmd.Flags().StringVar(&targetVersion, "target", "", "Device OS version to build against")
}

func runFlash(cmd *cobra.Command, args []string) error {
	client, err := newCloudClient()
	if err != nil {
		return err
	}
	deviceID := args[0]
	inputs := args[1:]

	var status cloud.FlashStatus
	if len(inputs) == 1 && strings.HasSuffix(inputs[0], ".bin") {
		firmware, err := os.ReadFile(inputs[0])
		if err != nil {
			return fmt.Errorf("failed to read binary: %w", err)
		}
		fmt.Printf("Flashing %s (%d bytes) to %s...\n", inputs[0], len(firmware), deviceID)
		status, err = client.FlashBinary(deviceID, firmware)
		if err != nil {
			return fmt.Errorf("flash failed: %w", cloudErr(err))
		}
	} else {
		files, err := collectSources(inputs)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no source files found")
		}
		opts, err := compileOptions()
		if err != nil {
			return err
		}
		fmt.Printf("Compiling %d file(s) and flashing to %s...\n", len(files), deviceID)
		status, err = client.FlashSources(deviceID, files, opts)
		if err != nil {
			return fmt.Errorf("flash failed: %w", cloudErr(err))
		}
	}

	if registry, err := config.LoadRegistry(); err == nil {
		registry.RecordFlash(deviceID)
		if err := registry.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to record flash: %v\n", err)
		}
	}

	fmt.Printf("✓ Flash started: %s\n", status.Status)
	fmt.Println("The device LED blinks magenta while the update is applied.")
	return nil
}

// monitorCmd streams live device events
var monitorCmd = &cobra.Command{
	Use:   "monitor [prefix]",
	Short: "Stream live events from your devices",
	Long: `Subscribe to the account event stream and print events as they
arrive. An optional prefix restricts the stream to matching event names.
Press Ctrl-C to stop.`,
	Example: `  # All events
  particle-cfg monitor

  # Only temperature events
  particle-cfg monitor temperature`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMonitor,
}

func runMonitor(cmd *cobra.Command, args []string) error {
	client, err := newCloudClient()
	if err != nil {
		return err
	}

	prefix := ""
	if len(args) > 0 {
		prefix = args[0]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events, err := client.SubscribeEvents(ctx, prefix)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", cloudErr(err))
	}

	if prefix != "" {
		fmt.Printf("Monitoring events matching %q (Ctrl-C to stop)...\n\n", prefix)
	} else {
		fmt.Println("Monitoring all events (Ctrl-C to stop)...")
		fmt.Println()
	}

	for event := range events {
		if outputFormat == "json" {
			if err := printJSON(event); err != nil {
				return err
			}
			continue
		}
		fmt.Printf("%s  %-24s %s  [%s]\n",
			event.PublishedAt.Local().Format("15:04:05"),
			event.Name, event.Data, event.CoreID)
	}

	fmt.Println("\nEvent stream closed.")
	return nil
}

// collectSources reads the named files and directories into memory.
// Directories are searched one level deep for firmware source files.
func collectSources(args []string) ([]build.SourceFile, error) {
	var files []build.SourceFile
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", arg, err)
		}
		if info.IsDir() {
			entries, err := os.ReadDir(arg)
			if err != nil {
				return nil, fmt.Errorf("cannot read %s: %w", arg, err)
			}
			for _, entry := range entries {
				if entry.IsDir() || !isSourceFile(entry.Name()) {
					continue
				}
				contents, err := os.ReadFile(filepath.Join(arg, entry.Name()))
				if err != nil {
					return nil, fmt.Errorf("cannot read %s: %w", entry.Name(), err)
				}
				files = append(files, build.SourceFile{Name: entry.Name(), Contents: contents})
			}
			continue
		}
		contents, err := os.ReadFile(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", arg, err)
		}
		files = append(files, build.SourceFile{Name: filepath.Base(arg), Contents: contents})
	}
	return files, nil
}

func isSourceFile(name string) bool {
	if name == "project.properties" {
		return true
	}
	switch filepath.Ext(name) {
	case ".ino", ".cpp", ".c", ".h", ".hpp":
		return true
	}
	return false
}

// compileOptions resolves compile settings from flags and stored defaults.
func compileOptions() (cloud.CompileOptions, error) {
	opts := cloud.CompileOptions{ProductID: productID, TargetVersion: targetVersion}
	if opts.ProductID == 0 || opts.TargetVersion == "" {
		registry, err := config.LoadRegistry()
		if err == nil && registry.Defaults != nil {
			if opts.ProductID == 0 {
				opts.ProductID = registry.Defaults.ProductID
			}
			if opts.TargetVersion == "" {
				opts.TargetVersion = registry.Defaults.TargetVersion
			}
		}
	}
	if opts.ProductID == 0 {
		opts.ProductID = cloud.DefaultProductID
	}
	return opts, nil
}

// cloudErr unwraps cloud errors into a short user-facing message while
// keeping auth failures actionable.
func cloudErr(err error) error {
	if cloud.IsAuthError(err) {
		return fmt.Errorf("%s (run 'particle-cfg login' to refresh credentials)", cloud.ShortErrorMessage(err))
	}
	return err
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/genomehub/stackctl/cmd/stackctl/config"
	"github.com/genomehub/stackctl/cmd/stackctl/internal/infra/compose"
	"github.com/genomehub/stackctl/cmd/stackctl/internal/infra/process"
	"github.com/genomehub/stackctl/cmd/stackctl/internal/snapshot"
)

// loadProfile reads the deployment profile named by the global
// --config flag.
func loadProfile() *config.Profile {
	profile, err := config.Load(profilePath)
	if err != nil {
		log.Fatalf("Error loading profile: %v", err)
	}
	return profile
}

// buildStackManager assembles the orchestrator and its dependencies
// from a loaded profile.
func buildStackManager(profile *config.Profile) StackManager {
	timeouts, err := profile.Timeouts.ToTimeoutConfig()
	if err != nil {
		log.Fatalf("Error in profile timeouts: %v", err)
	}

	executor, err := compose.NewDefaultExecutor(compose.Config{
		Command:        profile.ComposeCommand(),
		ComposeFile:    profile.ComposeFile,
		ProjectName:    profile.ProjectName,
		CommandTimeout: timeouts.CommandTimeout,
	}, process.NewDefaultManager())
	if err != nil {
		log.Fatalf("Error creating compose executor: %v", err)
	}

	var registrar SnapshotRegistrar
	if profile.Snapshot != nil {
		registrar = snapshot.NewRegistrar(nil, appLogger)
	}

	mgr, err := NewDefaultStackManager(profile, executor, NewDefaultSecretsManager(), registrar, appLogger)
	if err != nil {
		log.Fatalf("Error creating stack manager: %v", err)
	}
	return mgr
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runStart(cmd *cobra.Command, args []string) {
	profile := loadProfile()
	mgr := buildStackManager(profile)

	ctx, cancel := signalContext()
	defer cancel()

	if err := mgr.Start(ctx, StartOptions{
		Build:        forceBuild,
		SkipSnapshot: skipSnapshot,
		SkipLogDump:  skipLogDump,
	}); err != nil {
		log.Fatalf("Stack start failed: %v", err)
	}
}

func runStop(cmd *cobra.Command, args []string) {
	profile := loadProfile()
	mgr := buildStackManager(profile)

	ctx, cancel := signalContext()
	defer cancel()

	if err := mgr.Stop(ctx); err != nil {
		log.Fatalf("Stack stop failed: %v", err)
	}
	fmt.Println("Stack stopped.")
}

func runDestroy(cmd *cobra.Command, args []string) {
	profile := loadProfile()

	fmt.Println("WARNING: You are about to permanently delete all containers" +
		" for this stack. With --volumes this also wipes the databases and" +
		" search indices. Back up anything you need first.")
	fmt.Println("Are you sure you want to continue? (yes/no): ")
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	if strings.TrimSpace(strings.ToLower(input)) != "yes" {
		fmt.Println("Destroy cancelled.")
		return
	}

	mgr := buildStackManager(profile)
	ctx, cancel := signalContext()
	defer cancel()

	if err := mgr.Destroy(ctx, removeVolumes); err != nil {
		log.Fatalf("Stack destroy failed: %v", err)
	}
}

func runStatus(cmd *cobra.Command, args []string) {
	profile := loadProfile()
	mgr := buildStackManager(profile)

	ctx, cancel := signalContext()
	defer cancel()

	status, err := mgr.Status(ctx)
	if err != nil {
		log.Fatalf("Status check failed: %v", err)
	}

	fmt.Printf("Profile: %s  State: %s  Ready: %d/%d\n",
		status.Profile, status.State, status.Ready, status.Total)
	for _, svc := range status.Services {
		line := fmt.Sprintf("  %-16s %s", svc.Name, svc.State)
		if svc.Health != "" {
			line += " (" + svc.Health + ")"
		}
		fmt.Println(line)
	}
}

func runLogsCommand(cmd *cobra.Command, args []string) {
	profile := loadProfile()
	mgr := buildStackManager(profile)

	ctx, cancel := signalContext()
	defer cancel()

	if err := mgr.Logs(ctx, args, os.Stdout); err != nil {
		log.Fatalf("Fetching logs failed: %v", err)
	}
}

func runSnapshotRegister(cmd *cobra.Command, args []string) {
	profile := loadProfile()
	mgr := buildStackManager(profile)

	ctx, cancel := signalContext()
	defer cancel()

	if err := mgr.RegisterSnapshot(ctx); err != nil {
		log.Fatalf("Snapshot registration failed: %v", err)
	}
	fmt.Println("Snapshot repository registered.")
}

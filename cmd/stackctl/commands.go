package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	profilePath   string
	logLevel      string
	quiet         bool
	forceBuild    bool
	skipSnapshot  bool
	skipLogDump   bool
	removeVolumes bool
	bundlePrefix  string
	credsFile     string

	rootCmd = &cobra.Command{
		Use:   "stackctl",
		Short: "A cli to bring a declared service stack up in dependency order",
		Long: `stackctl reads a deployment profile, starts each service once its
				dependencies pass their readiness probes, registers the search
				snapshot repository, and reports what was blocked when a
				service never becomes ready.`,
	}

	// --- Stack Management ---
	stackCmd = &cobra.Command{
		Use:   "stack",
		Short: "Manage the declared service stack",
	}
	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Start all services in dependency order",
		Run:   runStart, // Defined in cmd_stack.go
	}
	stopCmd = &cobra.Command{
		Use:   "stop",
		Short: "Stop all services in reverse dependency order",
		Run:   runStop, // Defined in cmd_stack.go
	}
	destroyCmd = &cobra.Command{
		Use:   "destroy",
		Short: "DANGER: Stops and deletes all stack containers, optionally volumes",
		Run:   runDestroy, // Defined in cmd_stack.go
	}
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the observed state of every declared service",
		Run:   runStatus, // Defined in cmd_stack.go
	}
	logsCmd = &cobra.Command{
		Use:   "logs [service...]",
		Short: "Print container logs for services (defaults to the profile's dump list)",
		Run:   runLogsCommand, // Defined in cmd_stack.go
	}

	// --- Snapshot ---
	snapshotCmd = &cobra.Command{
		Use:   "snapshot",
		Short: "Manage the search snapshot repository",
	}
	snapshotRegisterCmd = &cobra.Command{
		Use:   "register",
		Short: "Register the snapshot repository against the running search service",
		Run:   runSnapshotRegister, // Defined in cmd_stack.go
	}

	// --- Profile / Ingress ---
	profileCmd = &cobra.Command{
		Use:   "profile",
		Short: "Inspect the deployment profile",
	}
	profileShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the resolved profile with the bring-up plan",
		Run:   runProfileShow, // Defined in cmd_utils.go
	}
	ingressCmd = &cobra.Command{
		Use:   "ingress",
		Short: "Work with the edge routing policy",
	}
	ingressRenderCmd = &cobra.Command{
		Use:   "render",
		Short: "Render the routing declaration for the edge layer",
		Run:   runIngressRender, // Defined in cmd_utils.go
	}

	// --- GCS ---
	uploadCmd = &cobra.Command{
		Use:   "upload",
		Short: "Upload diagnostic artifacts to Google Cloud Storage",
	}
	uploadLogsCmd = &cobra.Command{
		Use:   "logs [bucket] [local_directory]",
		Short: "Upload a captured log bundle to a GCS bucket",
		Args:  cobra.ExactArgs(2),
		Run:   runUploadLogs, // Defined in cmd_utils.go
	}
)

// init runs when the Go program starts
func init() {
	rootCmd.PersistentFlags().StringVar(&profilePath, "config", "",
		"Path to the deployment profile (default ~/.stackctl/stackctl.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log level: debug, info, warn, or error")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false,
		"Suppress console log output")

	rootCmd.AddCommand(stackCmd)
	stackCmd.AddCommand(startCmd)
	stackCmd.AddCommand(stopCmd)
	stackCmd.AddCommand(destroyCmd)
	stackCmd.AddCommand(statusCmd)
	stackCmd.AddCommand(logsCmd)
	startCmd.Flags().BoolVar(&forceBuild, "build", false, "Force rebuild of container images")
	startCmd.Flags().BoolVar(&skipSnapshot, "skip-snapshot", false,
		"Skip the snapshot repository registration job")
	startCmd.Flags().BoolVar(&skipLogDump, "skip-log-dump", false,
		"Skip the post-run container log dump")
	destroyCmd.Flags().BoolVar(&removeVolumes, "volumes", false,
		"Also delete named volumes (irreversible)")

	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.AddCommand(snapshotRegisterCmd)

	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileShowCmd)

	rootCmd.AddCommand(ingressCmd)
	ingressCmd.AddCommand(ingressRenderCmd)

	rootCmd.AddCommand(uploadCmd)
	uploadCmd.AddCommand(uploadLogsCmd)
	uploadLogsCmd.Flags().StringVar(&bundlePrefix, "prefix", "stackctl-logs",
		"Object prefix for the uploaded bundle")
	uploadLogsCmd.Flags().StringVar(&credsFile, "credentials", "",
		"Service account key file for GCS")
}

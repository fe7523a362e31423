package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/genomehub/stackctl/cmd/stackctl/gcs"
	"github.com/genomehub/stackctl/cmd/stackctl/internal/ingress"
	"github.com/genomehub/stackctl/cmd/stackctl/internal/plan"
)

func runProfileShow(cmd *cobra.Command, args []string) {
	profile := loadProfile()

	data, err := yaml.Marshal(profile)
	if err != nil {
		log.Fatalf("Error rendering profile: %v", err)
	}
	fmt.Print(string(data))

	bringUp, err := plan.Compute(profile.Services)
	if err != nil {
		log.Fatalf("Error computing bring-up plan: %v", err)
	}
	fmt.Println("\n# bring-up plan")
	for i, wave := range bringUp.Waves {
		fmt.Printf("# wave %d: %s\n", i+1, strings.Join(wave, ", "))
	}
}

func runIngressRender(cmd *cobra.Command, args []string) {
	profile := loadProfile()
	if profile.Ingress == nil {
		log.Fatal("Profile declares no ingress policy.")
	}

	out, err := ingress.FromSpec(profile.Ingress).RenderYAML()
	if err != nil {
		log.Fatalf("Error rendering ingress policy: %v", err)
	}
	fmt.Print(string(out))
}

func runUploadLogs(cmd *cobra.Command, args []string) {
	bucket, localDir := args[0], args[1]

	ctx, cancel := signalContext()
	defer cancel()

	client, err := gcs.NewClient(ctx, bucket, credsFile)
	if err != nil {
		log.Fatalf("Error creating GCS client: %v", err)
	}
	defer client.Close()

	if err := client.UploadBundle(ctx, localDir, bundlePrefix); err != nil {
		log.Fatalf("Error uploading log bundle: %v", err)
	}
	fmt.Printf("Uploaded %s to gs://%s/%s\n", localDir, bucket, bundlePrefix)
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
)

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	var url string

	if len(args) == 0 {
		// List all jobs
		url = fmt.Sprintf("%s/api/v1/jobs", serverURL)
		return listJobs(url)
	} else {
		// Get specific job status
		jobID := args[0]
		url = fmt.Sprintf("%s/api/v1/jobs/%s/status", serverURL, jobID)
		return getJobStatus(url, jobID)
	}
}

func listJobs(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var jobs []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("Found %d job(s):\n\n", len(jobs))
	for _, job := range jobs {
		config, _ := job["config"].(map[string]interface{})
		fmt.Printf("Job ID: %s\n", job["id"])
		fmt.Printf("  State: %s\n", job["state"])
		fmt.Printf("  Resolution: %v\n", config["resolution"])
		fmt.Printf("  Policy: %s\n", config["policy"])
		if metrics, ok := job["metrics"].(map[string]interface{}); ok {
			fmt.Printf("  Noisy PSNR: %.2f dB\n", metrics["noisyPsnr"])
		}
		fmt.Println()
	}

	return nil
}

func getJobStatus(url, jobID string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var status map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	// Display status
	fmt.Printf("Job: %s\n", status["id"])
	fmt.Printf("State: %s\n", status["state"])
	fmt.Println()

	config, _ := status["config"].(map[string]interface{})
	fmt.Println("Configuration:")
	fmt.Printf("  Reference: %s\n", config["refPath"])
	fmt.Printf("  Resolution: %v\n", config["resolution"])
	fmt.Printf("  Scale: %s\n", config["scale"])
	fmt.Printf("  Policy: %s\n", config["policy"])
	switch config["policy"] {
	case "branch":
		fmt.Printf("  Branch std: %v\n", config["branchStd"])
	case "snr":
		fmt.Printf("  Target SNR: %v dB\n", config["targetSnr"])
	}
	fmt.Printf("  Seed: %v\n", config["seed"])
	fmt.Println()

	if metrics, ok := status["metrics"].(map[string]interface{}); ok {
		fmt.Println("Metrics:")
		fmt.Printf("  Clean MAE: %.3g\n", metrics["cleanMae"])
		fmt.Printf("  Noisy MAE: %.3g\n", metrics["noisyMae"])
		fmt.Printf("  Noisy MSE: %.3g\n", metrics["noisyMse"])
		fmt.Printf("  Noisy PSNR: %.2f dB\n", metrics["noisyPsnr"])
		if snr, ok := metrics["snr"].(float64); ok {
			fmt.Printf("  Realized SNR: %.2f dB\n", snr)
		}
	}

	if elapsed, ok := status["elapsed"].(float64); ok {
		fmt.Printf("  Elapsed: %s\n", time.Duration(elapsed*float64(time.Second)).Round(time.Millisecond))
	}

	if msg, ok := status["error"].(string); ok && msg != "" {
		fmt.Printf("\nError: %s\n", msg)
	}

	return nil
}

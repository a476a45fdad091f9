package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/noah-isme/curso-asistencia-api/internal/repository"
	"github.com/noah-isme/curso-asistencia-api/pkg/config"
)

type probe struct {
	Action   string
	Critical bool
	Run      func(ctx context.Context, store *repository.APIStore) (string, error)
}

type result struct {
	Probe    probe
	Summary  string
	Error    error
	Duration time.Duration
}

var probes = []probe{
	{
		Action:   "getConfig",
		Critical: true,
		Run: func(ctx context.Context, store *repository.APIStore) (string, error) {
			courses, err := store.ListCourses(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d courses", len(courses)), nil
		},
	},
	{
		Action:   "getAsistencias",
		Critical: true,
		Run: func(ctx context.Context, store *repository.APIStore) (string, error) {
			marks, err := store.ListAttendance(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d attendance marks", len(marks)), nil
		},
	},
	{
		Action: "getCursoActivo",
		Run: func(ctx context.Context, store *repository.APIStore) (string, error) {
			course, err := store.ActiveCourse(ctx)
			if err != nil {
				return "", err
			}
			if course == nil {
				return "no active course", nil
			}
			return fmt.Sprintf("active course %s (%s)", course.ID, course.Name), nil
		},
	},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var (
		baseURL string
		key     string
		timeout time.Duration
	)
	flag.StringVar(&baseURL, "url", cfg.Remote.URL, "Remote data API URL (defaults to REMOTE_API_URL)")
	flag.StringVar(&key, "key", cfg.Remote.Key, "Remote data API key (defaults to REMOTE_API_KEY)")
	flag.DurationVar(&timeout, "timeout", cfg.Remote.Timeout, "HTTP client timeout")
	flag.Parse()

	if baseURL == "" {
		log.Fatal("remote API URL is required: set REMOTE_API_URL or pass -url")
	}

	store := repository.NewAPIStore(baseURL, key, timeout, nil)
	results := make([]result, 0, len(probes))
	breaking := 0
	for _, p := range probes {
		res := run(store, p, timeout)
		if res.Error != nil && p.Critical {
			breaking++
		}
		results = append(results, res)
	}

	printReport(results)
	fmt.Printf("Failed critical probes: %d\n", breaking)
	if breaking > 0 {
		os.Exit(1)
	}
}

func run(store *repository.APIStore, p probe, timeout time.Duration) result {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	start := time.Now()
	summary, err := p.Run(ctx, store)
	return result{Probe: p, Summary: summary, Error: err, Duration: time.Since(start)}
}

func printReport(results []result) {
	fmt.Println("Remote API Probe Report")
	fmt.Println("=======================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		}
		fmt.Printf("[%s] %s (%s)\n", status, res.Probe.Action, res.Duration)
		if res.Error != nil {
			fmt.Printf("  Error: %v | Critical: %t\n", res.Error, res.Probe.Critical)
		} else {
			fmt.Printf("  %s\n", res.Summary)
		}
	}
}

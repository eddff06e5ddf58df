package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-reading-log/internal/models"
	"github.com/noah-isme/sma-reading-log/internal/sheetapi"
)

type comparison struct {
	Action      string
	Critical    bool
	Diffs       []string
	DurationGo  time.Duration
	DurationOld time.Duration
}

func main() {
	var (
		goURL     string
		scriptURL string
		number    string
		name      string
		password  string
		timeout   time.Duration
	)

	flag.StringVar(&goURL, "go-url", "http://localhost:8080/exec", "Self-hosted script endpoint")
	flag.StringVar(&scriptURL, "script-url", "", "Hosted spreadsheet script URL")
	flag.StringVar(&number, "number", "", "Existing student number used to compare login")
	flag.StringVar(&name, "name", "", "Existing student name used to compare login")
	flag.StringVar(&password, "password", "", "Existing student password used to compare login")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "Per call timeout")
	flag.Parse()

	if scriptURL == "" {
		log.Fatal("-script-url is required")
	}

	logr := zap.NewNop()
	goAPI := sheetapi.NewClient(sheetapi.ClientConfig{URL: goURL, Timeout: timeout}, logr, nil)
	oldAPI := sheetapi.NewClient(sheetapi.ClientConfig{URL: scriptURL, Timeout: timeout}, logr, nil)
	ctx := context.Background()

	comparisons := []comparison{compareDashboard(ctx, goAPI, oldAPI)}
	// Login is only compared for an existing student; a first login with the
	// default password would register the student on both backends.
	if number != "" {
		creds := models.LoginCredentials{Number: number, Name: name, Password: password}
		comparisons = append(comparisons, compareLogin(ctx, goAPI, oldAPI, creds))
	}

	printReport(comparisons)

	breaking, optional := 0, 0
	for _, c := range comparisons {
		if len(c.Diffs) == 0 {
			continue
		}
		if c.Critical {
			breaking++
		} else {
			optional++
		}
	}
	fmt.Printf("Breaking diffs: %d, Optional diffs: %d\n", breaking, optional)
	if breaking > 0 {
		os.Exit(1)
	}
}

func compareDashboard(ctx context.Context, goAPI, oldAPI sheetapi.API) comparison {
	comp := comparison{Action: models.ActionGetDashboard, Critical: true}

	start := time.Now()
	goResp := goAPI.GetDashboard(ctx)
	comp.DurationGo = time.Since(start)
	start = time.Now()
	oldResp := oldAPI.GetDashboard(ctx)
	comp.DurationOld = time.Since(start)

	comp.Diffs = diffEnvelope(goResp.Success, oldResp.Success, goResp.Message, oldResp.Message)
	if goResp.Success && oldResp.Success && goResp.Data != nil && oldResp.Data != nil {
		comp.Diffs = append(comp.Diffs, diffTotals(*goResp.Data, *oldResp.Data)...)
	}
	return comp
}

func compareLogin(ctx context.Context, goAPI, oldAPI sheetapi.API, creds models.LoginCredentials) comparison {
	comp := comparison{Action: models.ActionLogin, Critical: true}

	start := time.Now()
	goResp := goAPI.Login(ctx, creds)
	comp.DurationGo = time.Since(start)
	start = time.Now()
	oldResp := oldAPI.Login(ctx, creds)
	comp.DurationOld = time.Since(start)

	comp.Diffs = diffEnvelope(goResp.Success, oldResp.Success, goResp.Message, oldResp.Message)
	if goResp.Success && oldResp.Success && goResp.Data != nil && oldResp.Data != nil {
		comp.Diffs = append(comp.Diffs, diffHistory(goResp.Data.History, oldResp.Data.History)...)
	}
	return comp
}

func diffEnvelope(goOK, oldOK bool, goMsg, oldMsg string) []string {
	var diffs []string
	if goOK != oldOK {
		diffs = append(diffs, fmt.Sprintf("success: go=%t script=%t", goOK, oldOK))
	}
	if !goOK && !oldOK && goMsg != oldMsg {
		diffs = append(diffs, fmt.Sprintf("message: go=%q script=%q", goMsg, oldMsg))
	}
	return diffs
}

// diffTotals compares page totals per student number, ignoring order.
func diffTotals(goStudents, oldStudents []models.Student) []string {
	goTotals := totalsByNumber(goStudents)
	oldTotals := totalsByNumber(oldStudents)

	numbers := make([]string, 0, len(goTotals)+len(oldTotals))
	seen := make(map[string]struct{}, len(goTotals)+len(oldTotals))
	for _, m := range []map[string]int{goTotals, oldTotals} {
		for n := range m {
			if _, ok := seen[n]; !ok {
				seen[n] = struct{}{}
				numbers = append(numbers, n)
			}
		}
	}
	sort.Strings(numbers)

	var diffs []string
	for _, n := range numbers {
		goTotal, inGo := goTotals[n]
		oldTotal, inOld := oldTotals[n]
		switch {
		case !inGo:
			diffs = append(diffs, fmt.Sprintf("student %s missing from go", n))
		case !inOld:
			diffs = append(diffs, fmt.Sprintf("student %s missing from script", n))
		case goTotal != oldTotal:
			diffs = append(diffs, fmt.Sprintf("student %s total: go=%d script=%d", n, goTotal, oldTotal))
		}
	}
	return diffs
}

func totalsByNumber(students []models.Student) map[string]int {
	totals := make(map[string]int, len(students))
	for _, s := range students {
		total := 0
		if s.TotalPageCount != nil {
			total = *s.TotalPageCount
		}
		totals[s.Number] = total
	}
	return totals
}

func diffHistory(goHistory, oldHistory []models.BookEntry) []string {
	if len(goHistory) != len(oldHistory) {
		return []string{fmt.Sprintf("history length: go=%d script=%d", len(goHistory), len(oldHistory))}
	}
	var diffs []string
	for i := range goHistory {
		if goHistory[i] != oldHistory[i] {
			diffs = append(diffs, fmt.Sprintf("entry %d: go=%+v script=%+v", i, goHistory[i], oldHistory[i]))
		}
	}
	return diffs
}

func printReport(results []comparison) {
	fmt.Println("Shadow Compare Report")
	fmt.Println("======================")
	for _, res := range results {
		status := "OK"
		if len(res.Diffs) > 0 {
			status = "DIFF"
		}
		fmt.Printf("[%s] %s\n", status, res.Action)
		fmt.Printf("  Go: %s | Script: %s\n", res.DurationGo, res.DurationOld)
		for _, d := range res.Diffs {
			fmt.Printf("  - %s\n", d)
		}
	}
}

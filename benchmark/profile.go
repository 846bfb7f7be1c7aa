package benchmark

import (
	"fmt"
	"os"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/fogfactory/conveyor"
	"github.com/samber/lo"
)

// Profile generates a CPU profile of a two stage pipeline run. It will be outputted as
// conveyor_{date}_n{items}_w{workers...}.prof.
//
// - items Number of items fed to the first queue.
// - tokenWorkers/resultWorkers Worker count of each stage. Each item sleeps one millisecond per
// stage, so the minimal sequential duration is 2*items milliseconds.
//
// use pprof to read the file (go install github.com/google/pprof@latest).
func Profile(items, tokenWorkers, resultWorkers int) {
	// Profile file
	f, err := os.Create(fmt.Sprintf("conveyor_%s_n%d_w%d-%d.prof",
		strings.ReplaceAll(time.Now().Truncate(time.Second).Format(time.DateTime), " ", "-"),
		items, tokenWorkers, resultWorkers))
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	// Init pipeline
	getToken := func(i int) string { time.Sleep(time.Millisecond); return fmt.Sprintf("token_%d", i) }
	getResult := func(token string) string { time.Sleep(time.Millisecond); return strings.ReplaceAll(token, "token", "result") }
	todo, _ := conveyor.NewQueue[int]()
	tokens, _ := conveyor.NewQueue[string]()
	results, _ := conveyor.NewQueue[string]()
	stage1, _ := conveyor.StartPool(tokenWorkers, getToken, todo, tokens)
	stage2, _ := conveyor.StartPool(resultWorkers, getResult, tokens, results)
	coord, _ := conveyor.NewCoordinator(todo, results, []conveyor.Runner{stage1, stage2})

	fmt.Println("items:", items, ", minimal seq duration:", time.Duration(2*items)*time.Millisecond)

	// Start profiling
	func() {
		_ = pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()

		// Run the pipeline
		start := time.Now()
		coord.Run(lo.Range(items))
		fmt.Printf("(par: %s)\n", time.Since(start))
	}()

	// sequential equivalent
	start := time.Now()
	for i := 0; i < items; i++ {
		_ = getResult(getToken(i))
	}
	fmt.Printf("(seq: %s)\n", time.Since(start))
	fmt.Printf("profile:%s\n", f.Name())

	// Call pprof on a file
	// pprof -http=:8080 $file
}

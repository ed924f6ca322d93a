package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"

	"github.com/kidandcat/pagecheck/pkg/browser"
	"github.com/kidandcat/pagecheck/pkg/config"
	"github.com/kidandcat/pagecheck/pkg/fixture"
	"github.com/kidandcat/pagecheck/pkg/logging"
	"github.com/kidandcat/pagecheck/pkg/parser"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

func main() {
	var (
		headless           = flag.Bool("headless", true, "Run browser in headless mode")
		timeout            = flag.Duration("timeout", 30*time.Second, "Test timeout")
		failOnConsoleError = flag.Bool("fail-on-console-error", true, "Fail tests when console errors occur")
		pattern            = flag.String("pattern", "*.test", "File pattern for test files")
		configFile         = flag.String("config", "", "Config file path")
		envFile            = flag.String("env", ".env", "Dotenv file with PAGECHECK_* variables")
		screenshotDir      = flag.String("screenshot-dir", "", "Screenshot directory")
		baseURL            = flag.String("base-url", "", "Base URL for relative navigation targets")
		fixtureRoot        = flag.String("fixture-root", "", "Directory fixture paths are resolved against")
		logLevel           = flag.String("log-level", "", "Log level (debug, info, warn, error)")
		logFormat          = flag.String("log-format", "", "Log format (text, json)")
	)

	flag.Parse()

	if err := config.LoadEnv(*envFile); err != nil {
		fatal(err)
	}

	fileConfig := &config.FileConfig{}
	configPath := *configFile
	if configPath == "" {
		configPath = config.FindConfigFile()
	}
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			fatal(fmt.Errorf("failed to load config file %s: %w", configPath, err))
		}
		fileConfig = loaded
	}
	if err := config.ApplyEnv(fileConfig); err != nil {
		fatal(err)
	}

	// CLI flags override env, env overrides the config file
	if *logLevel != "" {
		fileConfig.LogLevel = *logLevel
	}
	if *logFormat != "" {
		fileConfig.LogFormat = *logFormat
	}
	logging.Setup(fileConfig.LogLevel, fileConfig.LogFormat)
	logger := logging.Named("cli")
	if configPath != "" {
		logger.Debug("config loaded", "path", configPath)
	}

	runnerConfig := runnerConfigFrom(fileConfig)
	if isFlagSet("headless") || fileConfig.Headless == nil {
		runnerConfig.Headless = *headless
	}
	if isFlagSet("timeout") || fileConfig.Timeout == nil {
		runnerConfig.Timeout = *timeout
	}
	if isFlagSet("fail-on-console-error") || fileConfig.FailOnConsoleError == nil {
		runnerConfig.FailOnConsoleError = *failOnConsoleError
	}
	if *screenshotDir != "" {
		runnerConfig.ScreenshotDir = *screenshotDir
	}
	if *baseURL != "" {
		runnerConfig.BaseURL = *baseURL
	}
	if *fixtureRoot != "" {
		fileConfig.FixtureRoot = *fixtureRoot
	}

	fixtureOpts, err := fileConfig.FixtureOptions()
	if err != nil {
		fatal(err)
	}
	loader, err := fixtureLoader(fileConfig.FixtureRoot)
	if err != nil {
		fatal(err)
	}

	testFiles, err := findTestFiles(*pattern, flag.Args())
	if err != nil {
		fatal(fmt.Errorf("failed to find test files: %w", err))
	}
	if len(testFiles) == 0 {
		fatal(fmt.Errorf("no test files found"))
	}

	runner := browser.NewRunner(runnerConfig)
	p := parser.NewWithLoader(loader, fixtureOpts...)
	totalTests := 0
	parseFailures := 0

	for _, file := range testFiles {
		tests, err := p.ParseFile(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", red("parse error:"), err)
			parseFailures++
			continue
		}

		for _, test := range tests {
			runner.AddTest(test)
			totalTests++
		}
	}

	if totalTests == 0 {
		fatal(fmt.Errorf("no tests to run"))
	}

	if err := runner.Start(); err != nil {
		fatal(fmt.Errorf("failed to start browser: %w", err))
	}
	defer runner.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down gracefully...")
		runner.Stop()
		os.Exit(130)
	}()

	logger.Info("starting run", "run_id", runner.RunID(), "tests", totalTests, "files", len(testFiles))
	fmt.Println(yellow(fmt.Sprintf("Running %d tests from %d files...", totalTests, len(testFiles))))
	fmt.Println()

	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond)
	s.Start()

	resultsChan := make(chan browser.TestResult)
	var wg sync.WaitGroup

	go func() {
		for result := range resultsChan {
			s.Stop()
			printResult(result)
			s.Start()
			wg.Done()
		}
	}()

	results := runner.RunWithProgress(resultsChan, &wg)
	wg.Wait()
	s.Stop()

	passed, failed := 0, 0
	for _, result := range results {
		if result.Passed {
			passed++
		} else {
			failed++
		}
	}

	fmt.Printf("\n%s, %s", green(fmt.Sprintf("%d passed", passed)), red(fmt.Sprintf("%d failed", failed)))
	if parseFailures > 0 {
		fmt.Printf(", %s", red(fmt.Sprintf("%d files failed to parse", parseFailures)))
	}
	fmt.Println()

	if failed > 0 || parseFailures > 0 {
		runner.Stop()
		os.Exit(1)
	}
}

func runnerConfigFrom(fc *config.FileConfig) *browser.Config {
	cfg := browser.DefaultConfig()
	cfg.Logger = logging.Named("browser")
	cfg.BaseURL = fc.BaseURL
	if fc.Headless != nil {
		cfg.Headless = *fc.Headless
	}
	if fc.Timeout != nil {
		cfg.Timeout = fc.Timeout.Duration
	}
	if fc.NavigationTimeout != nil {
		cfg.NavigationTimeout = fc.NavigationTimeout.Duration
	}
	if fc.HighlightDelay != nil {
		cfg.HighlightDelay = fc.HighlightDelay.Duration
	}
	if fc.FailOnConsoleError != nil {
		cfg.FailOnConsoleError = *fc.FailOnConsoleError
	}
	if fc.ScreenshotDir != "" {
		cfg.ScreenshotDir = fc.ScreenshotDir
	}
	if fc.ViewportWidth > 0 && fc.ViewportHeight > 0 {
		cfg.ViewportWidth = fc.ViewportWidth
		cfg.ViewportHeight = fc.ViewportHeight
	}
	return cfg
}

// fixtureLoader anchors relative fixture paths at root, or at the working
// directory when root is empty.
func fixtureLoader(root string) (*fixture.Loader, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	loader := fixture.New(abs)
	loader.Logger = logging.Named("fixture")
	return loader, nil
}

func printResult(result browser.TestResult) {
	elapsed := result.Duration.Round(time.Millisecond)
	if result.Passed {
		fmt.Printf("%s %s (%s)\n", green("✓ PASS"), result.Name, elapsed)
		return
	}
	fmt.Printf("%s %s (%s)\n", red("✗ FAIL"), result.Name, elapsed)
	if result.Error != nil {
		fmt.Printf("  %s\n", red(fmt.Sprintf("Error: %v", result.Error)))
	}
	if len(result.Errors) > 0 {
		fmt.Println("  Console errors:")
		for _, ce := range result.Errors {
			fmt.Printf("    - %s at %s\n", ce.Message, ce.URL)
		}
	}
}

func findTestFiles(pattern string, args []string) ([]string, error) {
	if len(args) == 0 {
		return filepath.Glob(pattern)
	}

	var files []string
	for _, arg := range args {
		if strings.HasSuffix(arg, ".test") {
			files = append(files, arg)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(arg, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	return files, nil
}

func isFlagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, red("error:"), err)
	os.Exit(1)
}

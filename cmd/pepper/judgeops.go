// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/pepper-platform/pepper/cmd/pepper/cli"
	"github.com/pepper-platform/pepper/judge"
	"github.com/pepper-platform/pepper/judgeclient"
	"github.com/pepper-platform/pepper/judgerpc"
)

func languagesCommand() *cli.Command {
	opts := &commonOptions{}
	return &cli.Command{
		Name:    "languages",
		Summary: "List judge language availability",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("languages", pflag.ContinueOnError)
			opts.register(flags)
			return flags
		},
		Run: func(args []string) error {
			ctx := context.Background()

			var languages judgerpc.LanguageSet
			if opts.judgeURL != "" {
				set, err := judgeclient.NewHTTPClient(opts.judgeURL).Languages(ctx)
				if err != nil {
					return err
				}
				languages = set
			} else {
				client, err := openClient(opts)
				if err != nil {
					return err
				}
				defer client.Disconnect()
				set, err := client.Languages(ctx)
				if err != nil {
					return err
				}
				languages = set
			}

			names := make([]string, 0, len(languages))
			for name := range languages {
				names = append(names, name)
			}
			sort.Strings(names)

			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			for _, name := range names {
				language := languages[name]
				if language.Available {
					version := language.Version
					if version == "" {
						version = "available"
					}
					fmt.Fprintf(tw, "%s\t%s\n", name, version)
				} else {
					fmt.Fprintf(tw, "%s\tunavailable\n", name)
				}
			}
			return tw.Flush()
		},
	}
}

func runCommand() *cli.Command {
	opts := &commonOptions{}
	var language, inputPath, problemSlug string
	return &cli.Command{
		Name:    "run",
		Summary: "Run a source file on the judge",
		Usage:   "pepper run --language <lang> [--input FILE | --problem SLUG] <file>",
		Examples: []cli.Example{
			{Description: "Run with stdin from a file", Command: "pepper run --language python --input sample.txt main.py"},
			{Description: "Run against a problem's test cases", Command: "pepper run --language cpp --problem two-sum main.cpp"},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
			flags.StringVarP(&language, "language", "l", "", "language (python, cpp, java)")
			flags.StringVarP(&inputPath, "input", "i", "", "file piped to the program's stdin")
			flags.StringVarP(&problemSlug, "problem", "p", "", "run against this problem's test cases")
			opts.register(flags)
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return errors.New("usage: pepper run --language <lang> <file>")
			}
			if language == "" {
				return errors.New("--language is required")
			}
			if inputPath != "" && problemSlug != "" {
				return errors.New("--input and --problem are mutually exclusive")
			}
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			ctx := context.Background()

			var cases []judgerpc.TestCase
			if problemSlug != "" {
				cases, err = fetchTestCases(ctx, opts, problemSlug)
				if err != nil {
					return err
				}
				if len(cases) == 0 {
					return fmt.Errorf("no test cases found for problem %q", problemSlug)
				}
			}

			if cases != nil {
				response, err := executeWithCases(ctx, opts, string(source), language, cases)
				if err != nil {
					return err
				}
				printResults(response)
				if response.Summary.Failed > 0 {
					os.Exit(1)
				}
				return nil
			}

			input := ""
			if inputPath != "" {
				data, err := os.ReadFile(inputPath)
				if err != nil {
					return err
				}
				input = string(data)
			}
			result, err := executeCode(ctx, opts, string(source), language, input)
			if err != nil {
				return err
			}
			if result.Stdout != "" {
				fmt.Println(result.Stdout)
			}
			if result.Stderr != "" {
				fmt.Fprintln(os.Stderr, result.Stderr)
			}
			return nil
		},
	}
}

func submitCommand() *cli.Command {
	opts := &commonOptions{}
	var language, problemSlug string
	return &cli.Command{
		Name:    "submit",
		Summary: "Submit a solution for judging",
		Usage:   "pepper submit --language <lang> --problem <slug> <file>",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("submit", pflag.ContinueOnError)
			flags.StringVarP(&language, "language", "l", "", "language (python, cpp, java)")
			flags.StringVarP(&problemSlug, "problem", "p", "", "problem slug")
			opts.register(flags)
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return errors.New("usage: pepper submit --language <lang> --problem <slug> <file>")
			}
			if language == "" || problemSlug == "" {
				return errors.New("--language and --problem are required")
			}
			if opts.judgeURL != "" {
				return errors.New("submit requires the WebRTC connection; the HTTP fallback only supports run")
			}
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			client, err := openClient(opts)
			if err != nil {
				return err
			}
			defer client.Disconnect()

			verdict, err := client.SubmitWithTestCases(context.Background(), string(source), language, problemSlug)
			if err != nil {
				return err
			}
			if verdict.Error != "" {
				return fmt.Errorf("submission %s: %s", verdict.SubmissionID, verdict.Error)
			}
			if verdict.AllPassed {
				fmt.Printf("%s (submission %s)\n", verdict.Message, verdict.SubmissionID)
				return nil
			}
			fmt.Printf("%s (submission %s)\n", verdict.Message, verdict.SubmissionID)
			if verdict.FailedTestCase != nil {
				printTestResult(*verdict.FailedTestCase)
			}
			os.Exit(1)
			return nil
		},
	}
}

func historyCommand() *cli.Command {
	opts := &commonOptions{}
	var includeCode bool
	return &cli.Command{
		Name:    "history",
		Summary: "Show submission history for a problem",
		Usage:   "pepper history <problem-slug> [flags]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("history", pflag.ContinueOnError)
			flags.BoolVar(&includeCode, "code", false, "include submitted code")
			opts.register(flags)
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return errors.New("usage: pepper history <problem-slug>")
			}
			client, err := openClient(opts)
			if err != nil {
				return err
			}
			defer client.Disconnect()

			history, err := client.SubmissionHistory(context.Background(), args[0], includeCode)
			if err != nil {
				return err
			}
			if history.TotalSubmissions == 0 {
				fmt.Println("No submissions.")
				return nil
			}
			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tLANGUAGE\tSTATUS")
			for _, submission := range history.History {
				fmt.Fprintf(tw, "%s\t%s\t%s\n",
					submission.Datetime, submission.Language, submission.Status)
			}
			tw.Flush()
			for _, submission := range history.History {
				if includeCode && submission.Code != "" {
					fmt.Printf("\n--- %s (%s)\n%s\n", submission.ID, submission.Status, submission.Code)
				}
			}
			return nil
		},
	}
}

func statsCommand() *cli.Command {
	opts := &commonOptions{}
	return &cli.Command{
		Name:    "stats",
		Summary: "Show aggregate submission statistics",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("stats", pflag.ContinueOnError)
			opts.register(flags)
			return flags
		},
		Run: func(args []string) error {
			client, err := openClient(opts)
			if err != nil {
				return err
			}
			defer client.Disconnect()

			stats, err := client.SubmissionStats(context.Background())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintf(tw, "Total submissions\t%d\n", stats.TotalSubmissions)
			fmt.Fprintf(tw, "Successful\t%d\n", stats.SuccessfulSubmissions)
			fmt.Fprintf(tw, "Failed\t%d\n", stats.FailedSubmissions)
			fmt.Fprintf(tw, "Errors\t%d\n", stats.ErrorSubmissions)
			fmt.Fprintf(tw, "Problems attempted\t%d\n", stats.UniqueProblemsAttempted)
			fmt.Fprintf(tw, "Problems solved\t%d\n", stats.UniqueProblemsSolved)
			fmt.Fprintf(tw, "Languages used\t%v\n", stats.LanguagesUsed)
			return tw.Flush()
		},
	}
}

// fetchTestCases pulls a problem's test cases from the content server,
// cached the same way the judge caches them.
func fetchTestCases(ctx context.Context, opts *commonOptions, problemSlug string) ([]judgerpc.TestCase, error) {
	cfg, err := opts.resolve()
	if err != nil {
		return nil, err
	}
	cacheBase, err := os.UserCacheDir()
	if err != nil {
		return nil, err
	}
	source := judge.NewContentSource(cfg.Content.URL,
		filepath.Join(cacheBase, "pepper", "testcases"), opts.logger())
	return source.Fetch(ctx, problemSlug)
}

func executeCode(ctx context.Context, opts *commonOptions, code, language, input string) (*judgeclient.ExecuteCodeResult, error) {
	if opts.judgeURL != "" {
		return judgeclient.NewHTTPClient(opts.judgeURL).ExecuteCode(ctx, code, language, input)
	}
	client, err := openClient(opts)
	if err != nil {
		return nil, err
	}
	defer client.Disconnect()
	return client.ExecuteCode(ctx, code, language, input)
}

func executeWithCases(ctx context.Context, opts *commonOptions, code, language string, cases []judgerpc.TestCase) (*judgerpc.ExecuteResponse, error) {
	if opts.judgeURL != "" {
		return judgeclient.NewHTTPClient(opts.judgeURL).ExecuteWithTestCases(ctx, code, language, cases)
	}
	client, err := openClient(opts)
	if err != nil {
		return nil, err
	}
	defer client.Disconnect()
	return client.ExecuteWithTestCases(ctx, code, language, cases)
}

func printResults(response *judgerpc.ExecuteResponse) {
	for _, result := range response.Results {
		printTestResult(result)
	}
	fmt.Printf("%d/%d test cases passed\n",
		response.Summary.Passed, response.Summary.Total)
}

func printTestResult(result judgerpc.TestResult) {
	switch {
	case result.Error != "":
		fmt.Printf("test case %d: error: %s\n", result.TestCase, result.Error)
	case result.Passed == nil:
		fmt.Printf("test case %d: output:\n%s\n", result.TestCase, result.ActualOutput)
	case *result.Passed:
		fmt.Printf("test case %d: passed\n", result.TestCase)
	default:
		fmt.Printf("test case %d: failed\n", result.TestCase)
		if result.Diff != "" {
			fmt.Println(result.Diff)
		}
	}
}

// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/pepper-platform/pepper/catalog"
	"github.com/pepper-platform/pepper/cmd/pepper/cli"
)

func coursesCommand() *cli.Command {
	opts := &commonOptions{}
	return &cli.Command{
		Name:    "courses",
		Summary: "List courses from the content server",
		Usage:   "pepper courses [course-slug] [flags]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("courses", pflag.ContinueOnError)
			opts.register(flags)
			return flags
		},
		Run: func(args []string) error {
			cfg, err := opts.resolve()
			if err != nil {
				return err
			}
			ctx := context.Background()

			if len(args) == 1 {
				return printCourse(ctx, cfg.Content.URL, args[0])
			}

			var courses []catalog.CourseSummary
			if err := fetchContentJSON(ctx, cfg.Content.URL+"/database/courses/all.json", &courses); err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintln(tw, "SLUG\tNAME\tDURATION")
			for _, course := range courses {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", course.Slug, course.Name, course.Duration)
			}
			return tw.Flush()
		},
	}
}

func printCourse(ctx context.Context, contentURL, slug string) error {
	var course catalog.Course
	url := fmt.Sprintf("%s/database/courses/%s/meta.json", contentURL, slug)
	if err := fetchContentJSON(ctx, url, &course); err != nil {
		return err
	}
	if course.Name != "" {
		fmt.Println(course.Name)
	}
	for _, category := range course.Categories {
		fmt.Printf("%s:\n", category.Name)
		for _, topic := range category.Topics {
			if topic.Slug != "" {
				fmt.Printf("  %s (%s)\n", topic.Name, topic.Slug)
			} else {
				fmt.Printf("  %s\n", topic.Name)
			}
		}
	}
	return nil
}

func fetchContentJSON(ctx context.Context, url string, into any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, into)
}

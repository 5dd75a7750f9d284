package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/opendiary/diary/internal/models"
)

func parseIDArg(args []string) (int64, error) {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid entry id %q", args[0])
	}
	return id, nil
}

// optionalBoolFlag reads a tri-state bool flag: unset means nil
func optionalBoolFlag(cmd *cobra.Command, name string) (*bool, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func printEntries(entries []*models.Entry) {
	fmt.Printf("\nFound %d entries.\n\n", len(entries))
	for i, entry := range entries {
		if i > 0 {
			fmt.Println()
		}
		fmt.Print(entry)
	}
}

// addCmd creates a new entry
var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a new journal entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		content, _ := cmd.Flags().GetString("content")
		if content == "" {
			return fmt.Errorf("content must be provided for this operation")
		}
		pinned, _ := cmd.Flags().GetBool("pinned")

		ctx, cancel := cancelOnInterrupt()
		defer cancel()

		_, store, err := openStorage()
		if err != nil {
			return err
		}
		defer store.Close()

		entry, err := store.CreateEntry(ctx, content, pinned)
		if err != nil {
			return err
		}

		fmt.Printf("New entry created with id %d.\n", entry.ID)
		return nil
	},
}

// listCmd lists entries with pagination and filters
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List journal entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := models.EntryFilter{}

		filter.Page, _ = cmd.Flags().GetInt64("page")
		filter.PerPage, _ = cmd.Flags().GetInt64("per-page")

		sortFlag, _ := cmd.Flags().GetString("sort")
		sort, err := models.ParseSortOrder(sortFlag)
		if err != nil {
			return err
		}
		filter.Sort = sort

		pinned, err := optionalBoolFlag(cmd, "pinned")
		if err != nil {
			return err
		}
		filter.Pinned = pinned

		if substr, _ := cmd.Flags().GetString("substr"); substr != "" {
			filter.Substring = &substr
		}

		ctx, cancel := cancelOnInterrupt()
		defer cancel()

		_, store, err := openStorage()
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.GetEntries(ctx, filter)
		if err != nil {
			return err
		}

		printEntries(entries)
		return nil
	},
}

// showCmd prints a single entry
var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single journal entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIDArg(args)
		if err != nil {
			return err
		}

		ctx, cancel := cancelOnInterrupt()
		defer cancel()

		_, store, err := openStorage()
		if err != nil {
			return err
		}
		defer store.Close()

		entry, err := store.GetEntry(ctx, id)
		if err != nil {
			return err
		}

		fmt.Print(entry)
		return nil
	},
}

// updateCmd updates the content and/or pinned flag of an entry
var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a journal entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIDArg(args)
		if err != nil {
			return err
		}

		var content *string
		if cmd.Flags().Changed("content") {
			value, _ := cmd.Flags().GetString("content")
			content = &value
		}

		pinned, err := optionalBoolFlag(cmd, "pinned")
		if err != nil {
			return err
		}

		ctx, cancel := cancelOnInterrupt()
		defer cancel()

		_, store, err := openStorage()
		if err != nil {
			return err
		}
		defer store.Close()

		entry, err := store.UpdateEntry(ctx, id, content, pinned)
		if err != nil {
			return err
		}

		fmt.Printf("Entry with id %d updated.\n", entry.ID)
		return nil
	},
}

// deleteCmd removes an entry
var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a journal entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIDArg(args)
		if err != nil {
			return err
		}

		ctx, cancel := cancelOnInterrupt()
		defer cancel()

		_, store, err := openStorage()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.DeleteEntry(ctx, id); err != nil {
			return err
		}

		fmt.Printf("Entry with id %d deleted.\n", id)
		return nil
	},
}

func init() {
	addCmd.Flags().StringP("content", "t", "", "entry content")
	addCmd.Flags().BoolP("pinned", "p", false, "pin the entry")

	listCmd.Flags().Int64("page", 0, "page number (default 1)")
	listCmd.Flags().Int64("per-page", 0, "entries per page (default 10)")
	listCmd.Flags().String("sort", "", "sort order by creation time (asc or desc)")
	listCmd.Flags().BoolP("pinned", "p", false, "filter by pinned state")
	listCmd.Flags().String("substr", "", "filter by content substring")

	updateCmd.Flags().StringP("content", "t", "", "new entry content")
	updateCmd.Flags().BoolP("pinned", "p", false, "new pinned state")
}

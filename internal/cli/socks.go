package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/existflow/sockmatch/internal/model"
	"github.com/existflow/sockmatch/internal/pairing"
	"github.com/spf13/cobra"
)

// maxShownCandidates bounds the candidates printed per upload
const maxShownCandidates = 5

func newSocksCmd(a *app) *cobra.Command {
	socksCmd := &cobra.Command{
		Use:     "socks",
		Aliases: []string{"sock", "singles"},
		Short:   "Manage single socks",
	}

	var description string
	uploadCmd := &cobra.Command{
		Use:   "upload [image...]",
		Short: "Upload sock photos and look for partners",
		Long: `Upload one or more sock photos. Images are uploaded one at a time;
the first failure stops the batch.

Examples:
  sockmatch socks upload left.jpg
  sockmatch socks upload *.heic -d "wool, striped"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runUpload(cmd.Context(), args, description)
		},
	}
	uploadCmd.Flags().StringVarP(&description, "description", "d", "", "Description applied to every upload")

	var unmatched bool
	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your socks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSockList(cmd.Context(), unmatched)
		},
	}
	listCmd.Flags().BoolVarP(&unmatched, "unmatched", "u", false, "Only socks without a partner")

	showCmd := &cobra.Command{
		Use:   "show [sock-id]",
		Short: "Show one sock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			sock, err := a.socks.Get(cmd.Context(), id)
			if err != nil {
				return a.fail(cmd.Context(), err)
			}
			a.printSock(sock)
			return nil
		},
	}

	var force bool
	deleteCmd := &cobra.Command{
		Use:     "delete [sock-id]",
		Aliases: []string{"rm"},
		Short:   "Delete an unmatched sock",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSockDelete(cmd.Context(), args[0], force)
		},
	}
	deleteCmd.Flags().BoolVarP(&force, "force", "f", false, "Do not ask for confirmation")

	var (
		limit     int
		imagePath string
		exclude   int64
	)
	searchCmd := &cobra.Command{
		Use:   "search [sock-id]",
		Short: "Find likely partners for a sock",
		Long: `Find likely partners for an uploaded sock, or for a photo that has
not been uploaded with --image.

Examples:
  sockmatch socks search 12
  sockmatch socks search --image new.jpg --exclude 12`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSearch(cmd.Context(), args, imagePath, exclude, limit)
		},
	}
	searchCmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of candidates (default 10)")
	searchCmd.Flags().StringVar(&imagePath, "image", "", "Search with a local photo instead of a stored sock")
	searchCmd.Flags().Int64Var(&exclude, "exclude", 0, "Sock id to leave out of --image results")

	var (
		processed bool
		token     string
	)
	imageURLCmd := &cobra.Command{
		Use:   "image-url [sock-id]",
		Short: "Print the authenticated image URL of a sock",
		Long: `Print a URL that loads the sock photo without extra headers.
The URL embeds your session token; treat it like a password.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if token == "" {
				token, _ = a.tokens.Get(cmd.Context())
			}
			if processed {
				a.println(a.socks.ImageNoBgURL(id, token))
			} else {
				a.println(a.socks.ImageURL(id, token))
			}
			return nil
		},
	}
	imageURLCmd.Flags().BoolVar(&processed, "processed", false, "Background-removed variant")
	imageURLCmd.Flags().StringVar(&token, "token", "", "Token to embed instead of the stored one")

	socksCmd.AddCommand(uploadCmd, listCmd, showCmd, deleteCmd, searchCmd, imageURLCmd)
	return socksCmd
}

func (a *app) runUpload(ctx context.Context, paths []string, description string) error {
	a.printf("🔄 Uploading %d photo(s)...\n", len(paths))
	results, err := a.pairing.UploadAll(ctx, paths, description)

	for _, r := range results {
		a.printf("✅ %s → sock #%d\n", filepath.Base(r.Path), r.Sock.ID)
		switch {
		case r.SearchErr != nil:
			a.println("   ⚠️  Could not search for partners right now.")
		case len(r.Candidates) == 0:
			a.println("   No likely partners yet.")
		default:
			a.println("   Likely partners:")
			for i, c := range r.Candidates {
				if i == maxShownCandidates {
					a.printf("   ... and %d more\n", len(r.Candidates)-i)
					break
				}
				a.printf("   %s\n", pairing.RenderCandidate(c))
			}
		}
	}

	if err != nil {
		if skipped := len(paths) - len(results) - 1; skipped > 0 {
			a.printf("⚠️  Stopped: %d remaining photo(s) were not uploaded.\n", skipped)
		}
		return a.fail(ctx, err)
	}
	return nil
}

func (a *app) runSockList(ctx context.Context, unmatchedOnly bool) error {
	socks, err := a.socks.List(ctx, unmatchedOnly)
	if err != nil {
		return a.fail(ctx, err)
	}

	if len(socks) == 0 {
		a.println("No socks found. Upload one with: sockmatch socks upload photo.jpg")
		return nil
	}

	a.printf("%-6s %-10s %-12s %s\n", "ID", "STATUS", "UPLOADED", "DESCRIPTION")
	for _, s := range socks {
		status := "single"
		if s.IsMatched {
			status = "matched"
		}
		a.printf("%-6d %-10s %-12s %s\n", s.ID, status, s.CreatedAt.Local().Format("2006-01-02"), truncate(s.Description, 40))
	}
	return nil
}

func (a *app) printSock(s *model.Sock) {
	a.printf("Sock #%d\n", s.ID)
	status := "single"
	if s.IsMatched {
		status = "matched"
	}
	a.printf("  Status:      %s\n", status)
	if s.Description != "" {
		a.printf("  Description: %s\n", s.Description)
	}
	if s.DominantColor != "" {
		a.printf("  Color:       %s\n", s.DominantColor)
	}
	if s.PatternType != "" {
		a.printf("  Pattern:     %s\n", s.PatternType)
	}
	if len(s.ColorPalette) > 0 {
		a.printf("  Palette:     %s\n", strings.Join(s.ColorPalette, " "))
	}
	a.printf("  Uploaded:    %s\n", s.CreatedAt.Local().Format("2006-01-02 15:04"))
}

func (a *app) runSockDelete(ctx context.Context, arg string, force bool) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}

	sock, err := a.socks.Get(ctx, id)
	if err != nil {
		return a.fail(ctx, err)
	}
	if sock.IsMatched {
		return fmt.Errorf("sock #%d is part of a match; remove the match first with 'sockmatch matches delete'", id)
	}

	if !a.confirm(force, fmt.Sprintf("Delete sock #%d? This cannot be undone.", id)) {
		a.println("Cancelled.")
		return nil
	}

	if err := a.socks.Delete(ctx, id); err != nil {
		return a.fail(ctx, err)
	}
	a.printf("🗑️  Deleted sock #%d\n", id)
	return nil
}

func (a *app) runSearch(ctx context.Context, args []string, imagePath string, exclude int64, limit int) error {
	var (
		found []model.SockMatch
		err   error
	)

	switch {
	case imagePath != "" && len(args) > 0:
		return fmt.Errorf("give either a sock id or --image, not both")
	case imagePath != "":
		var ex *int64
		if exclude > 0 {
			ex = &exclude
		}
		found, err = a.socks.Search(ctx, imagePath, ex)
	case len(args) == 1:
		id, perr := parseID(args[0])
		if perr != nil {
			return perr
		}
		found, err = a.socks.SearchBySockID(ctx, id, limit)
	default:
		return fmt.Errorf("give a sock id or --image")
	}
	if err != nil {
		return a.fail(ctx, err)
	}

	if len(found) == 0 {
		a.println("No likely partners found.")
		return nil
	}
	for _, c := range found {
		a.println(pairing.RenderCandidate(c))
	}
	return nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

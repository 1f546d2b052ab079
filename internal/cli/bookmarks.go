package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rahulclufox/EpubViewerKit/internal/bookmark"
)

// PositionOptions holds the flags that locate a reading position.
type PositionOptions struct {
	*RootOptions
	BookFile string
	Page     int
	X        int
	Y        int
}

func (o *PositionOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.BookFile, "book-file", "", "derive the book id from a book file path")
	cmd.Flags().IntVar(&o.Page, "page", 0, "page number")
	cmd.Flags().IntVar(&o.X, "x", 0, "horizontal page offset")
	cmd.Flags().IntVar(&o.Y, "y", 0, "vertical page offset")
}

func (o *PositionOptions) position(args []string) (bookmark.Position, error) {
	bookID, err := resolveBookID(args, o.BookFile)
	if err != nil {
		return bookmark.Position{}, err
	}
	pos := bookmark.Position{BookID: bookID, PageNumber: o.Page, PageOffsetX: o.X, PageOffsetY: o.Y}
	if err := pos.Validate(); err != nil {
		return bookmark.Position{}, WrapExitError(ExitCommandError, "bad arguments", err)
	}
	return pos, nil
}

// resolveBookID takes the book id from the single positional argument or
// from --book-file, never both.
func resolveBookID(args []string, bookFile string) (string, error) {
	switch {
	case len(args) == 1 && bookFile != "":
		return "", NewExitError(ExitCommandError, "give a book id or --book-file, not both")
	case len(args) == 1:
		return args[0], nil
	case bookFile != "":
		return bookmark.BookIDFromPath(bookFile), nil
	default:
		return "", NewExitError(ExitCommandError, "a book id or --book-file is required")
	}
}

// AddOptions holds flags for the add command.
type AddOptions struct {
	PositionOptions
	Name string
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{PositionOptions: PositionOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "add [book-id]",
		Short: "Bookmark a reading position",
		Long: `Create a bookmark at a position and store it.

The bookmark gets a fresh id and the current time. Omitting --name leaves
it unnamed; --name "" stores an empty name.

Examples:
  readmark add kapalam --page 5 --x 10 --y 20 --name "chapter mark"
  readmark add --book-file ~/books/kapalam.epub --page 12`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(opts, args, cmd)
		},
	}

	opts.bind(cmd)
	cmd.Flags().StringVar(&opts.Name, "name", "", "bookmark name")

	return cmd
}

func runAdd(opts *AddOptions, args []string, cmd *cobra.Command) error {
	pos, err := opts.position(args)
	if err != nil {
		return err
	}
	var name *string
	if cmd.Flags().Changed("name") {
		name = bookmark.Name(opts.Name)
	}

	s, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.close()

	b, err := s.svc.NewBookmark(pos, name)
	if err != nil {
		return s.fail(ExitCommandError, CodeInvalidInput, "invalid bookmark", err)
	}

	outcome := s.svc.Persist(commandContext(cmd), b)
	if !outcome.OK() {
		return s.fail(ExitFailure, CodeStorage, "failed to store bookmark", outcome.Err)
	}
	s.out.VerboseLog("stored %s", b.ID)
	return s.out.Bookmark(outcome.Bookmark)
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <bookmark-id>",
		Short: "Show one bookmark",
		Long: `Show the bookmark with the given id.

Exits 1 when no bookmark has that id.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer s.close()

			b, ok, err := s.svc.GetByID(commandContext(cmd), args[0])
			if err != nil {
				return s.fail(ExitFailure, CodeStorage, "lookup failed", err)
			}
			if !ok {
				return s.fail(ExitFailure, CodeNotFound, fmt.Sprintf("bookmark not found: %s", args[0]), nil)
			}
			return s.out.Bookmark(b)
		},
	}
}

// NewMatchCommand creates the match command.
func NewMatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PositionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "match [book-id]",
		Short: "Find the bookmark at an exact position",
		Long: `Find the bookmark whose book, page and offsets all equal the given
position. When several bookmarks share the position the oldest stored one
is shown.

Exits 1 when nothing matches.

Example:
  readmark match kapalam --page 5 --x 10 --y 20`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := opts.position(args)
			if err != nil {
				return err
			}

			s, err := openSession(cmd, opts.RootOptions)
			if err != nil {
				return err
			}
			defer s.close()

			b, ok, err := s.svc.GetByMatchingPosition(commandContext(cmd), pos)
			if err != nil {
				return s.fail(ExitFailure, CodeStorage, "lookup failed", err)
			}
			if !ok {
				return s.fail(ExitFailure, CodeNotFound, fmt.Sprintf("no bookmark at %s", pos), nil)
			}
			return s.out.Bookmark(b)
		},
	}

	opts.bind(cmd)
	return cmd
}

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	BookFile string
	Page     int
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list [book-id]",
		Short: "List bookmarks",
		Long: `List bookmarks.

With a book, lists that book's bookmarks newest first, optionally only
those on --page. Without one, lists every bookmark in the order they were
first stored.

Examples:
  readmark list
  readmark list kapalam
  readmark list kapalam --page 5 --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.BookFile, "book-file", "", "derive the book id from a book file path")
	cmd.Flags().IntVar(&opts.Page, "page", 0, "only bookmarks on this page")

	return cmd
}

func runList(opts *ListOptions, args []string, cmd *cobra.Command) error {
	scoped := len(args) == 1 || opts.BookFile != ""
	if !scoped && cmd.Flags().Changed("page") {
		return NewExitError(ExitCommandError, "--page needs a book")
	}

	var bookID string
	if scoped {
		var err error
		if bookID, err = resolveBookID(args, opts.BookFile); err != nil {
			return err
		}
	}

	s, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.close()

	ctx := commandContext(cmd)
	var bs []bookmark.Bookmark
	if scoped {
		var page *int
		if cmd.Flags().Changed("page") {
			page = &opts.Page
		}
		bs, err = s.svc.ListForBook(ctx, bookID, page)
	} else {
		bs, err = s.svc.ListAll(ctx)
	}
	if err != nil {
		return s.fail(ExitFailure, CodeStorage, "listing failed", err)
	}
	return s.out.Bookmarks(bs)
}

// RemoveResult is the JSON payload of the rm command.
type RemoveResult struct {
	IDs     []string `json:"ids"`
	Missing []string `json:"missing,omitempty"`
}

// NewRemoveCommand creates the rm command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <bookmark-id>...",
		Short: "Remove bookmarks",
		Long: `Remove bookmarks by id.

Prints "removed <id>" for each stored bookmark that was removed and
"not found <id>" for ids that are not stored. Ids that are not stored do
not change the exit code.

Exits 1 if any removal failed.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer s.close()

			ctx := commandContext(cmd)
			result := RemoveResult{IDs: []string{}}
			for _, id := range args {
				_, ok, err := s.svc.GetByID(ctx, id)
				if err != nil {
					s.record("remove_by_id", bookmark.Bookmark{ID: id}, err)
					continue
				}
				if !ok {
					result.Missing = append(result.Missing, id)
					continue
				}
				s.svc.RemoveByID(ctx, id)
				result.IDs = append(result.IDs, id)
			}

			if failures := s.takeFailures(); len(failures) > 0 {
				if s.out.Format == "json" {
					if err := s.out.Error(CodeRemoveFailed, fmt.Sprintf("%d removal(s) failed", len(failures)), failures); err != nil {
						return err
					}
				}
				return NewExitError(ExitFailure, strings.Join(failures, "; "))
			}

			if s.out.Format == "json" {
				return s.out.Success(result)
			}
			for _, id := range result.IDs {
				fmt.Fprintf(s.out.Writer, "removed %s\n", id)
			}
			for _, id := range result.Missing {
				fmt.Fprintf(s.out.Writer, "not found %s\n", id)
			}
			return nil
		},
	}
}

// fail reports an error response in JSON mode and returns the matching
// ExitError. Text mode leaves printing to main.
func (s *session) fail(exitCode int, code, message string, err error) error {
	if s.out.Format == "json" {
		var details interface{}
		if err != nil {
			details = err.Error()
		}
		if werr := s.out.Error(code, message, details); werr != nil {
			return werr
		}
	}
	if err != nil {
		return WrapExitError(exitCode, message, err)
	}
	return NewExitError(exitCode, message)
}

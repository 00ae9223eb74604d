package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/five82/roster/internal/api"
	"github.com/five82/roster/internal/app"
	"github.com/five82/roster/internal/listing"
	"github.com/five82/roster/internal/mutation"
	"github.com/five82/roster/internal/session"
	"github.com/five82/roster/internal/state"
	"github.com/five82/roster/internal/users"
)

func newUsersCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Work with users without opening the console",
	}
	cmd.AddCommand(
		newUsersListCommand(flags),
		newUsersGetCommand(flags),
		newUsersCreateCommand(flags),
		newUsersUpdateCommand(flags),
		newUsersDeleteCommand(flags),
	)
	return cmd
}

// withService runs fn with a signed-in users service.
func withService(flags *globalFlags, fn func(svc *users.Service) error) error {
	env, err := app.Bootstrap(flags.options())
	if err != nil {
		return err
	}
	defer env.Close()

	if !env.Session.Valid() {
		return session.ErrNoSession
	}

	svc := app.NewService(env)
	defer svc.Close()
	return fn(svc)
}

func newUsersListCommand(flags *globalFlags) *cobra.Command {
	var (
		page       int
		search     string
		sortBy     string
		desc       bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print one page of users",
		Long: `Print one page of users. --search filters the fetched page only, the
same way the console does.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(flags, func(svc *users.Service) error {
				svc.Store().Dispatch(state.SetCurrentPage{Page: page})
				res := svc.Current(cmd.Context())
				if res.Err != nil && !res.HasData {
					return fmt.Errorf("list users: %s", api.Describe(res.Err))
				}

				st := svc.Search(search)
				rows := listing.Rows(st, listing.Sort{Column: listing.ParseColumn(sortBy), Desc: desc})
				info := listing.PageInfoFor(st)
				if jsonOutput {
					return writeJSON(cmd.OutOrStdout(), listOutput{
						Page:       info.Page,
						TotalPages: info.TotalPages,
						Total:      info.Total,
						Users:      rows,
					})
				}
				return printUsers(cmd.OutOrStdout(), rows, info)
			})
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page to fetch")
	cmd.Flags().StringVar(&search, "search", "", "case-insensitive filter on name and email")
	cmd.Flags().StringVar(&sortBy, "sort", "", "sort by id, name or email")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output JSON")
	return cmd
}

type listOutput struct {
	Page       int        `json:"page"`
	TotalPages int        `json:"total_pages"`
	Total      int        `json:"total"`
	Users      []api.User `json:"users"`
}

func newUsersGetCommand(flags *globalFlags) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "get ID",
		Short: "Print one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withService(flags, func(svc *users.Service) error {
				res := svc.User(cmd.Context(), id)
				if res.Err != nil {
					return fmt.Errorf("get user %d: %s", id, api.Describe(res.Err))
				}
				if jsonOutput {
					return writeJSON(cmd.OutOrStdout(), res.Data)
				}
				printUser(cmd.OutOrStdout(), res.Data)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output JSON")
	return cmd
}

func bindFieldFlags(cmd *cobra.Command, f *api.UserFields) {
	cmd.Flags().StringVar(&f.FirstName, "first", "", "first name")
	cmd.Flags().StringVar(&f.LastName, "last", "", "last name")
	cmd.Flags().StringVar(&f.Email, "email", "", "email address")
	cmd.Flags().StringVar(&f.Avatar, "avatar", "", "avatar URL")
}

func newUsersCreateCommand(flags *globalFlags) *cobra.Command {
	var fields api.UserFields

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if fields.Email == "" {
				return errors.New("--email is required")
			}
			return withService(flags, func(svc *users.Service) error {
				_, err := svc.Create(cmd.Context(), fields, mutation.Callbacks[api.User]{
					OnSuccess: func(u api.User) {
						fmt.Fprintf(cmd.OutOrStdout(), "Created user %d (%s)\n", u.ID, u.Email)
					},
				})
				if err != nil {
					return fmt.Errorf("create user: %s", api.Describe(err))
				}
				return nil
			})
		},
	}
	bindFieldFlags(cmd, &fields)
	return cmd
}

func newUsersUpdateCommand(flags *globalFlags) *cobra.Command {
	var fields api.UserFields

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change fields of a user",
		Long:  "Change the given fields of a user. Fields without a flag keep their value.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if fields.IsZero() {
				return errors.New("nothing to update, pass at least one of --first, --last, --email, --avatar")
			}
			return withService(flags, func(svc *users.Service) error {
				_, err := svc.Update(cmd.Context(), id, fields, mutation.Callbacks[api.User]{
					OnSuccess: func(u api.User) {
						fmt.Fprintf(cmd.OutOrStdout(), "Updated user %d\n", id)
					},
				})
				if err != nil {
					return fmt.Errorf("update user %d: %s", id, api.Describe(err))
				}
				return nil
			})
		},
	}
	bindFieldFlags(cmd, &fields)
	return cmd
}

func newUsersDeleteCommand(flags *globalFlags) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a user",
		Long:  "Delete a user. Asks for confirmation unless --yes is given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !yes {
				ok, err := confirmDelete(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
					return nil
				}
			}
			return withService(flags, func(svc *users.Service) error {
				err := svc.Delete(cmd.Context(), id, mutation.Callbacks[struct{}]{
					OnSuccess: func(struct{}) {
						fmt.Fprintf(cmd.OutOrStdout(), "Deleted user %d\n", id)
					},
				})
				if err != nil {
					return fmt.Errorf("delete user %d: %s", id, api.Describe(err))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation")
	return cmd
}

func confirmDelete(ctx context.Context, id int64) (bool, error) {
	var ok bool
	confirm := huh.NewConfirm().
		Title(fmt.Sprintf("Delete user %d?", id)).
		Affirmative("Delete").
		Negative("Cancel").
		Value(&ok)
	err := huh.NewForm(huh.NewGroup(confirm)).
		WithShowHelp(false).
		RunWithContext(ctx)
	return ok, err
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid user id %q", raw)
	}
	return id, nil
}

func printUsers(w io.Writer, rows []api.User, info listing.PageInfo) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL")
	for _, u := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", u.ID, u.FullName(), u.Email)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s (page %d/%d)\n", info.Label(), info.Page, info.TotalPages)
	return err
}

func printUser(w io.Writer, u api.User) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%d\n", u.ID)
	fmt.Fprintf(tw, "Name\t%s\n", u.FullName())
	fmt.Fprintf(tw, "Email\t%s\n", u.Email)
	if u.Avatar != "" {
		fmt.Fprintf(tw, "Avatar\t%s\n", u.Avatar)
	}
	tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

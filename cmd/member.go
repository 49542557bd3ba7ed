package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/roster"
	"github.com/spf13/cobra"
)

var memberCmd = &cobra.Command{
	Use:   "member",
	Short: "Manage enrolled members",
}

var memberAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Enroll a member from one or more photos",
	Long: `Enroll a member. Every photo must contain exactly one face; each one
adds a descriptor to the member. Names are stored upper-case.

Examples:
  # Single photo
  face-attendance member add "Jane Doe" --roll-no 42 --image jane.jpg

  # Several angles
  face-attendance member add "Jane Doe" --roll-no 42 \
    --image center.jpg --angle Center --image left.jpg --angle Left`,
	Args: cobra.ExactArgs(1),
	RunE: runMemberAdd,
}

var memberListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled members",
	Args:  cobra.NoArgs,
	RunE:  runMemberList,
}

var memberRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove an enrolled member",
	Args:  cobra.ExactArgs(1),
	RunE:  runMemberRemove,
}

func init() {
	rootCmd.AddCommand(memberCmd)
	memberCmd.AddCommand(memberAddCmd, memberListCmd, memberRemoveCmd)

	memberAddCmd.Flags().String("roll-no", "", "Roll number")
	memberAddCmd.Flags().StringSlice("image", nil, "Photo containing exactly one face (repeatable)")
	memberAddCmd.Flags().StringSlice("angle", nil, "Capture angle for each --image, in the same order")
	addPasswordFlag(memberAddCmd)
	addPasswordFlag(memberRemoveCmd)

	memberListCmd.Flags().Bool("json", false, "Output as JSON")
}

// readCaptures loads the photos named by --image.
func readCaptures(images, angles []string) ([]attendance.Capture, error) {
	if len(images) == 0 {
		return nil, errors.New("at least one --image is required")
	}
	if len(angles) > 0 && len(angles) != len(images) {
		return nil, fmt.Errorf("got %d --angle values for %d images", len(angles), len(images))
	}

	captures := make([]attendance.Capture, len(images))
	for i, path := range images {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read image: %w", err)
		}
		captures[i].Image = data
		if len(angles) > 0 {
			captures[i].Angle = angles[i]
		}
	}
	return captures, nil
}

func runMemberAdd(cmd *cobra.Command, args []string) (err error) {
	ctx := context.Background()
	name := args[0]

	captures, err := readCaptures(mustGetStringSlice(cmd, "image"), mustGetStringSlice(cmd, "angle"))
	if err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(ctx, a, &err)

	if err := requireAdmin(cmd, a.service); err != nil {
		return err
	}

	created, err := a.service.EnrollCaptures(ctx, name, mustGetString(cmd, "roll-no"), captures)
	if err != nil {
		return fmt.Errorf("enrollment failed: %w", err)
	}
	if !created {
		return fmt.Errorf("member %s already exists", roster.NormalizeName(name))
	}

	fmt.Printf("Enrolled %s with %d descriptor(s)\n", roster.NormalizeName(name), len(captures))
	return nil
}

func runMemberList(cmd *cobra.Command, args []string) (err error) {
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(ctx, a, &err)

	members := a.service.Members()
	if mustGetBool(cmd, "json") {
		return outputJSON(members)
	}

	if len(members) == 0 {
		fmt.Println("No members enrolled.")
		return nil
	}

	fmt.Printf("%-30s %-12s %-8s %s\n", "NAME", "ROLL NO", "ACTIVE", "DESCRIPTORS")
	for _, m := range members {
		fmt.Printf("%-30s %-12s %-8t %d\n", m.Name, m.RollNo, m.Active, m.Descriptors)
	}
	fmt.Printf("\n%d member(s)\n", len(members))
	return nil
}

func runMemberRemove(cmd *cobra.Command, args []string) (err error) {
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(ctx, a, &err)

	if err := requireAdmin(cmd, a.service); err != nil {
		return err
	}

	removed, err := a.service.Remove(ctx, args[0])
	if err != nil {
		return fmt.Errorf("removal failed: %w", err)
	}
	if !removed {
		return fmt.Errorf("member %s not found", roster.NormalizeName(args[0]))
	}

	fmt.Printf("Removed %s\n", roster.NormalizeName(args[0]))
	return nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/jingkaihe/prskill/pkg/presenter"
	"github.com/jingkaihe/prskill/pkg/skills"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type SkillInstallConfig struct {
	Dir   string
	Force bool
}

func NewSkillInstallConfig() *SkillInstallConfig {
	return &SkillInstallConfig{
		Dir:   ".claude/skills",
		Force: false,
	}
}

type SkillPromptConfig struct {
	PRRef  string
	NoHost bool
	Review *ReviewContextConfig
}

func NewSkillPromptConfig() *SkillPromptConfig {
	return &SkillPromptConfig{
		PRRef:  "",
		NoHost: false,
		Review: NewReviewContextConfig(),
	}
}

var skillCmd = &cobra.Command{
	Use:   "skill",
	Short: "Inspect, install and run the prskill skills",
	Long: `List, show and install the pr-description and code-review skills, or print a skill
together with the repository context it needs as a ready-to-paste prompt.

Skills in ./.prskill/skills and ~/.prskill/skills override the built-in skills of the same name.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var skillListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available skills",
	Long:  `List every available skill with its description and where it was loaded from.`,
	Run: func(_ *cobra.Command, _ []string) {
		if err := listSkills(os.Stdout); err != nil {
			presenter.Error(err, "Failed to list skills")
			os.Exit(1)
		}
	},
}

var skillShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a skill",
	Long:  `Print the full SKILL.md of a skill, frontmatter included.`,
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		skill, err := lookupSkill(args[0])
		if err != nil {
			presenter.Error(err, "Failed to load skill")
			os.Exit(1)
		}
		presenter.Document(skill.Raw)
	},
}

var skillInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the built-in skills into an agent skills directory",
	Long: `Write the built-in skills into a skills directory, one sub-directory per skill.
Existing SKILL.md files are left alone unless --force is given.

Examples:
  prskill skill install
  prskill skill install --dir ~/.claude/skills --force`,
	Run: func(cmd *cobra.Command, _ []string) {
		config := getSkillInstallConfigFromFlags(cmd)
		if err := installSkills(cmd.Context(), config); err != nil {
			presenter.Error(err, "Failed to install skills")
			os.Exit(1)
		}
	},
}

var skillPromptCmd = &cobra.Command{
	Use:   "prompt <name>",
	Short: "Print a skill followed by the repository context it needs",
	Long: `Print the skill body followed by the gathered repository context.

For pr-description the context is the branch diff against its merge base with the base
branch and, when available, the existing pull request. For code-review it is the diff of
the selected scope. Other skills are printed without context.

Examples:
  prskill skill prompt pr-description
  prskill skill prompt code-review --scope working
  prskill skill prompt code-review --scope commit --commit HEAD~1`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := getSkillPromptConfigFromFlags(cmd)
		out, err := skillPrompt(cmd.Context(), args[0], config)
		if err != nil {
			presenter.Error(err, "Failed to build the skill prompt")
			os.Exit(1)
		}
		presenter.Document(out)
	},
}

func init() {
	installDefaults := NewSkillInstallConfig()
	skillInstallCmd.Flags().StringP("dir", "d", installDefaults.Dir, "Skills directory to install into")
	skillInstallCmd.Flags().BoolP("force", "f", installDefaults.Force, "Overwrite skills that are already installed")

	promptDefaults := NewSkillPromptConfig()
	skillPromptCmd.Flags().String("pr", promptDefaults.PRRef, "Pull request number or URL (defaults to the current branch)")
	skillPromptCmd.Flags().Bool("no-host", promptDefaults.NoHost, "Do not contact the hosting service")
	addReviewScopeFlags(skillPromptCmd, promptDefaults.Review)

	skillCmd.AddCommand(skillListCmd)
	skillCmd.AddCommand(skillShowCmd)
	skillCmd.AddCommand(skillInstallCmd)
	skillCmd.AddCommand(skillPromptCmd)
	rootCmd.AddCommand(skillCmd)
}

func getSkillInstallConfigFromFlags(cmd *cobra.Command) *SkillInstallConfig {
	config := NewSkillInstallConfig()
	if dir, err := cmd.Flags().GetString("dir"); err == nil {
		config.Dir = dir
	}
	if force, err := cmd.Flags().GetBool("force"); err == nil {
		config.Force = force
	}
	return config
}

func getSkillPromptConfigFromFlags(cmd *cobra.Command) *SkillPromptConfig {
	config := NewSkillPromptConfig()
	if ref, err := cmd.Flags().GetString("pr"); err == nil {
		config.PRRef = ref
	}
	if noHost, err := cmd.Flags().GetBool("no-host"); err == nil {
		config.NoHost = noHost
	}
	config.Review = getReviewContextConfigFromFlags(cmd)
	return config
}

func lookupSkill(name string) (*skills.Skill, error) {
	discovery, err := skills.NewDiscovery()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create skill discovery")
	}
	return discovery.GetSkill(name)
}

func listSkills(w io.Writer) error {
	discovery, err := skills.NewDiscovery()
	if err != nil {
		return errors.Wrap(err, "failed to create skill discovery")
	}

	list, err := discovery.ListSkills()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		presenter.Info("No skills found")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDESCRIPTION\tSOURCE")
	for _, skill := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", skill.Name, skill.Description, skill.Source())
	}
	return tw.Flush()
}

func installSkills(ctx context.Context, config *SkillInstallConfig) error {
	result, err := skills.Install(ctx, config.Dir, config.Force)
	if err != nil {
		return err
	}

	for _, path := range result.Written {
		presenter.Success(fmt.Sprintf("Installed %s", path))
	}
	for _, path := range result.Skipped {
		presenter.Warning(fmt.Sprintf("Skipped %s (already exists, use --force to overwrite)", path))
	}
	return nil
}

func skillPrompt(ctx context.Context, name string, config *SkillPromptConfig) (string, error) {
	skill, err := lookupSkill(name)
	if err != nil {
		return "", err
	}

	var blocks []skills.ContextBlock
	switch name {
	case skills.PRDescription:
		blocks, err = prContextBlocks(ctx, &PRContextConfig{PRRef: config.PRRef, NoHost: config.NoHost})
	case skills.CodeReview:
		blocks, err = reviewContextBlocks(ctx, config.Review)
	}
	if err != nil {
		return "", err
	}

	return skills.Render(skill, blocks)
}

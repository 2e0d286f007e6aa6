package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// completeProjectRefs lists project IDs with their names as descriptions.
func completeProjectRefs(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if Store == nil || len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	var ids []string
	for _, p := range Store.Projects() {
		if toComplete == "" || strings.HasPrefix(p.ID, toComplete) {
			ids = append(ids, p.ID+"\t"+p.Name)
		}
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}

// completeProjectThenTask completes a project as the first argument and one
// of its task IDs as the second.
func completeProjectThenTask(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	switch len(args) {
	case 0:
		return completeProjectRefs(cmd, args, toComplete)
	case 1:
		if Store == nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		p, err := Store.Project(args[0])
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		var ids []string
		for _, t := range p.Tasks {
			if toComplete == "" || strings.HasPrefix(t.ID, toComplete) {
				// Include the title as description for better UX.
				ids = append(ids, t.ID+"\t"+string(t.Status)+": "+t.Title)
			}
		}
		return ids, cobra.ShellCompDirectiveNoFileComp
	default:
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
}

// completeTemplateIDs lists the template catalog.
func completeTemplateIDs(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	if Templates == nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var ids []string
	for _, t := range Templates.List() {
		ids = append(ids, t.ID+"\t"+t.Name)
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}

// completeStatuses returns a completion function for task status filters.
func completeStatuses(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{
		"all\tEvery task",
		"todo\tNot started or paused",
		"in_progress\tTimer running",
		"done\tCompleted",
	}, cobra.ShellCompDirectiveNoFileComp
}

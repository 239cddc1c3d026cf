package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/HendryAvila/projektbot/internal/directory"
	"github.com/HendryAvila/projektbot/internal/membership"
	"github.com/HendryAvila/projektbot/internal/roles"
)

func (r *Router) table() []command {
	return []command{
		{path: "project add", usage: "project add <name> <description...>", help: "Create a project", admin: true, minArgs: 1, run: r.projectAdd},
		{path: "project rm", usage: "project rm <name>", help: "Delete a project", admin: true, minArgs: 1, run: r.projectRemove},
		{path: "project join", usage: "project join <name> [@users...]", help: "Join a project (or add the named users)", minArgs: 1, run: r.projectJoin},
		{path: "project leave", usage: "project leave [@users...]", help: "Leave your project (or remove the named users)", run: r.projectLeave},
		{path: "project info", usage: "project info [name]", help: "Show a project", run: r.projectInfo},
		{path: "project ls", usage: "project ls", help: "List projects", run: r.projectList},
		{path: "project list", usage: "project list", run: r.projectList},
		{path: "project lead", usage: "project lead <name> @user", help: "Set the project leader", admin: true, minArgs: 1, run: r.projectLead},
		{path: "project repo add", usage: "project repo add <project> <label> <url>", help: "Add a repository link", admin: true, minArgs: 3, run: r.repoAdd},
		{path: "project repo rm", usage: "project repo rm <project> <label>", help: "Remove a repository link", admin: true, minArgs: 2, run: r.repoRemove},
		{path: "project repo modify", usage: "project repo modify <project> <label> <url>", help: "Change a repository link", admin: true, minArgs: 3, run: r.repoModify},
		{path: "user info", usage: "user info [@user]", help: "Show a member", run: r.userInfo},
		{path: "user set", usage: "user set birthyear|class <value>", help: "Update your profile", minArgs: 2, run: r.userSet},
		{path: "ping", usage: "ping", help: "Show gateway latency", run: r.ping},
		{path: "help", usage: "help", help: "Show this help", run: r.help},
	}
}

// ─── project ─────────────────────────────────────────────────────────────────

func (r *Router) projectAdd(ctx context.Context, inv *Invocation) (string, error) {
	name := inv.arg(0)
	p, err := r.deps.Directory.Create(ctx, name, inv.rest(1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Added a project called %q.", p.Name), nil
}

func (r *Router) projectRemove(ctx context.Context, inv *Invocation) (string, error) {
	if err := r.deps.Directory.Delete(ctx, inv.arg(0)); err != nil {
		return "", err
	}
	return fmt.Sprintf("Project %q was removed.", inv.arg(0)), nil
}

func (r *Router) projectJoin(ctx context.Context, inv *Invocation) (string, error) {
	res, err := r.deps.Membership.Join(ctx, inv.arg(0), inv.targetsOrIssuer())
	if err != nil {
		return "", err
	}
	return formatBatch(res), nil
}

func (r *Router) projectLeave(ctx context.Context, inv *Invocation) (string, error) {
	res, err := r.deps.Membership.Leave(ctx, inv.targetsOrIssuer())
	if err != nil {
		return "", err
	}
	return formatBatch(res), nil
}

func (r *Router) projectInfo(ctx context.Context, inv *Invocation) (string, error) {
	name := inv.rest(0)
	if name == "" {
		_, p, err := r.deps.Directory.User(ctx, inv.Issuer.ID)
		if err != nil {
			return "", err
		}
		if p == nil {
			return "", fmt.Errorf("%w: you are not in a project, name one: %sproject info <name>", ErrInvalidArgument, r.deps.Prefix)
		}
		name = p.Name
	}

	d, err := r.deps.Directory.Describe(ctx, name)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Project:** %s\n\n**Description:**\n%s\n", d.Project.Name, lo.Ternary(d.Project.Description == "", "-", d.Project.Description))
	if d.LeaderName != "" {
		fmt.Fprintf(&b, "\n**Leader:** %s\n", d.LeaderName)
	}
	b.WriteString("\n**Members:**\n")
	if len(d.Members) == 0 {
		b.WriteString("none\n")
	}
	for _, m := range d.Members {
		b.WriteString(m.DisplayName + "\n")
	}
	if len(d.Links) > 0 {
		b.WriteString("\n**Repositories:**\n")
		for _, l := range d.Links {
			fmt.Fprintf(&b, "%s: <%s>\n", l.Label, l.URL)
		}
	}
	return b.String(), nil
}

func (r *Router) projectList(ctx context.Context, _ *Invocation) (string, error) {
	var b strings.Builder
	b.WriteString("**Projects**\n")
	n := 0
	for p, err := range r.deps.Directory.List(ctx) {
		if err != nil {
			return "", err
		}
		n++
		fmt.Fprintf(&b, "*%s:* %s\n", p.Name, p.Description)
	}
	if n == 0 {
		b.WriteString("No projects yet.\n")
	}
	return b.String(), nil
}

func (r *Router) projectLead(ctx context.Context, inv *Invocation) (string, error) {
	if len(inv.Targets) != 1 {
		return "", fmt.Errorf("%w: name exactly one user: %sproject lead <name> @user", ErrInvalidArgument, r.deps.Prefix)
	}
	warnings, err := r.deps.Directory.SetLeader(ctx, inv.arg(0), inv.Targets[0])
	if err != nil {
		return "", err
	}
	out := fmt.Sprintf("%s now leads %s.", Mention(inv.Targets[0]), inv.arg(0))
	return out + formatWarnings(warnings), nil
}

// ─── project repo ────────────────────────────────────────────────────────────

func (r *Router) repoAdd(ctx context.Context, inv *Invocation) (string, error) {
	project, label, link := inv.arg(0), inv.arg(1), inv.arg(2)
	if err := r.deps.Directory.AddLink(ctx, project, label, link); err != nil {
		return "", err
	}
	return fmt.Sprintf("Added %s to %s.", label, project), nil
}

func (r *Router) repoRemove(ctx context.Context, inv *Invocation) (string, error) {
	project, label := inv.arg(0), inv.arg(1)
	if err := r.deps.Directory.RemoveLink(ctx, project, label); err != nil {
		return "", err
	}
	return fmt.Sprintf("Removed %s from %s.", label, project), nil
}

func (r *Router) repoModify(ctx context.Context, inv *Invocation) (string, error) {
	project, label, link := inv.arg(0), inv.arg(1), inv.arg(2)
	if err := r.deps.Directory.UpdateLink(ctx, project, label, link); err != nil {
		return "", err
	}
	return fmt.Sprintf("Updated %s of %s.", label, project), nil
}

// ─── user ────────────────────────────────────────────────────────────────────

func (r *Router) userInfo(ctx context.Context, inv *Invocation) (string, error) {
	id := inv.targetsOrIssuer()[0]
	u, p, err := r.deps.Directory.User(ctx, id)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n", u.DisplayName)
	fmt.Fprintf(&b, "Project: %s\n", lo.TernaryF(p == nil, func() string { return "none" }, func() string { return p.Name }))
	if u.BirthYear != nil {
		fmt.Fprintf(&b, "Birth year: %d\n", *u.BirthYear)
	}
	if u.ClassLabel != nil {
		fmt.Fprintf(&b, "Class: %s\n", *u.ClassLabel)
	}
	return b.String(), nil
}

func (r *Router) userSet(ctx context.Context, inv *Invocation) (string, error) {
	field, value := strings.ToLower(inv.arg(0)), inv.rest(1)
	var prof directory.Profile
	switch field {
	case "birthyear":
		year, err := strconv.Atoi(value)
		if err != nil || year < 1900 || year > time.Now().Year() {
			return "", fmt.Errorf("%w: birth year must be a year like 2008", ErrInvalidArgument)
		}
		prof.BirthYear = &year
	case "class":
		prof.ClassLabel = &value
	default:
		return "", fmt.Errorf("%w: usage: %suser set birthyear|class <value>", ErrInvalidArgument, r.deps.Prefix)
	}
	if err := r.deps.Directory.SetProfile(ctx, inv.Issuer.ID, prof); err != nil {
		return "", err
	}
	return "Profile updated.", nil
}

// ─── misc ────────────────────────────────────────────────────────────────────

func (r *Router) ping(_ context.Context, _ *Invocation) (string, error) {
	if r.deps.Latency == nil {
		return "Pong.", nil
	}
	st, ok := r.deps.Latency.Stats()
	if !ok {
		return fmt.Sprintf("Pong: %s", ms(st.Current)), nil
	}
	return fmt.Sprintf("Pong: %s\nMinimum: %s\nMedian: %s\nMaximum: %s\n(%d samples)",
		ms(st.Current), ms(st.Min), ms(st.Median), ms(st.Max), st.Samples), nil
}

func ms(d time.Duration) string {
	return strconv.FormatFloat(float64(d)/float64(time.Millisecond), 'f', 1, 64) + " ms"
}

func (r *Router) help(_ context.Context, inv *Invocation) (string, error) {
	var b strings.Builder
	b.WriteString("**Commands**\n")
	for _, c := range r.commands {
		if c.help == "" || (c.admin && !inv.Admin) {
			continue
		}
		fmt.Fprintf(&b, "`%s%s` %s\n", r.deps.Prefix, c.usage, c.help)
	}
	return b.String(), nil
}

// ─── Formatting ──────────────────────────────────────────────────────────────

func formatBatch(res *membership.Result) string {
	lines := lo.Map(res.Outcomes, func(o membership.Outcome, _ int) string {
		if o.NotFound {
			return fmt.Sprintf("User %s not found.", Mention(o.UserID))
		}
		return fmt.Sprintf("User %s %s.", Mention(o.UserID), o.Transition)
	})
	return strings.Join(lines, "\n") + formatWarnings(res.Warnings)
}

func formatWarnings(warnings []*roles.EffectError) string {
	if len(warnings) == 0 {
		return ""
	}
	var b strings.Builder
	for _, w := range warnings {
		fmt.Fprintf(&b, "\nWarning: could not %s %s role of %s for %s.",
			w.Effect.Action, lo.Ternary(w.Effect.Leader, "leader", "member"), w.Effect.Project, Mention(w.Effect.UserID))
	}
	return b.String()
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/dmitrijs2005/pledgeboard/internal/client/client"
)

var errUsage = errors.New("usage")

func (a *App) pledgeArg(args []string, usage string) (string, error) {
	if len(args) == 0 {
		fmt.Fprintln(a.out, "Usage:", usage)
		return "", errUsage
	}
	return args[0], nil
}

// Vote records a like (+1) or dislike (-1) for the pledge in args[0].
func (a *App) Vote(ctx context.Context, args []string, value int) error {
	usage := "like <pledge_id>"
	if value < 0 {
		usage = "dislike <pledge_id>"
	}
	id, err := a.pledgeArg(args, usage)
	if err != nil {
		return err
	}

	if err := a.client.Vote(ctx, id, value); err != nil {
		a.report("Vote", err)
		return err
	}
	fmt.Fprintf(a.out, "Recorded %s for %s\n", voteName(value), id)
	return nil
}

func (a *App) Cancel(ctx context.Context, args []string) error {
	id, err := a.pledgeArg(args, "cancel <pledge_id>")
	if err != nil {
		return err
	}

	if err := a.client.Cancel(ctx, id); err != nil {
		a.report("Cancel", err)
		return err
	}
	fmt.Fprintf(a.out, "Cancelled your vote on %s\n", id)
	return nil
}

// My shows the logged in user's own vote on a pledge.
func (a *App) My(ctx context.Context, args []string) error {
	id, err := a.pledgeArg(args, "my <pledge_id>")
	if err != nil {
		return err
	}

	v, err := a.client.MyEvaluation(ctx, id)
	if err != nil {
		a.report("My vote", err)
		return err
	}
	fmt.Fprintf(a.out, "Your vote on %s: %s\n", id, voteName(v))
	return nil
}

func (a *App) Stats(ctx context.Context, args []string) error {
	id, err := a.pledgeArg(args, "stats <pledge_id>")
	if err != nil {
		return err
	}

	s, err := a.client.Statistics(ctx, id)
	if err != nil {
		a.report("Statistics", err)
		return err
	}

	fmt.Fprintf(a.out, "%s  %s\n", s.PledgeID, s.Title)
	fmt.Fprintf(a.out, "  likes: %d  dislikes: %d  total: %d  approval: %.1f%%\n",
		s.LikeCount, s.DislikeCount, s.TotalVotes, float64(s.ApprovalRate))
	return nil
}

// Counts prints how many elections, candidates and pledges the server holds.
func (a *App) Counts(ctx context.Context) error {
	c, err := a.client.Counts(ctx)
	if err != nil {
		a.report("Counts", err)
		return err
	}
	fmt.Fprintln(a.out, c.Elections)
	fmt.Fprintln(a.out, c.Candidates)
	fmt.Fprintln(a.out, c.Pledges)
	return nil
}

// Refresh asks the server to reload open data. Only the admin account may.
func (a *App) Refresh(ctx context.Context, args []string) error {
	target := client.RefreshAll
	if len(args) > 0 {
		target = client.RefreshTarget(args[0])
	}

	msg, err := a.client.Refresh(ctx, target)
	if err != nil {
		a.report("Refresh", err)
		return err
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func (a *App) report(op string, err error) {
	switch {
	case errors.Is(err, client.ErrNotLoggedIn):
		fmt.Fprintln(a.out, "Please login first")
	case errors.Is(err, client.ErrTimeout):
		log.Printf("%s: server did not answer in time, try again", op)
	case errors.Is(err, client.ErrUnavailable):
		log.Printf("%s: server unavailable", op)
		a.userName = ""
	default:
		log.Printf("%s unsuccessful: %s", op, err.Error())
	}
}

func voteName(v int) string {
	switch {
	case v > 0:
		return "like"
	case v < 0:
		return "dislike"
	default:
		return "none"
	}
}

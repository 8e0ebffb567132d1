// feed-cli — консольный клиент ленты: выполняет одно взаимодействие
// через координатор мутаций и печатает подтверждённое сервером состояние.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/pribylovaa/go-shortvideo-feed/internal/client"
	"github.com/pribylovaa/go-shortvideo-feed/internal/config"
	"github.com/pribylovaa/go-shortvideo-feed/internal/coordinator"
	"github.com/pribylovaa/go-shortvideo-feed/internal/models"
	"github.com/pribylovaa/go-shortvideo-feed/pkg/log"
)

const usage = `usage: feed-cli [-config path] [-viewer id] [-username name] <command> [args]

commands:
  videos                          list the feed
  like <videoId>                  toggle like on a video
  double-tap <videoId>            like a video (never unlikes)
  comments <videoId>              list comments, newest first
  comment <videoId> <text...>     add a comment
  like-comment <videoId> <id>     toggle like on a comment
  follow <userId>                 follow a user
  unfollow <userId>               unfollow a user
  profile <userId>                show a profile
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("feed-cli", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }

	var configPath, viewerID, username string
	var verbose bool
	fs.StringVar(&configPath, "config", "", "path to config file (overrides CONFIG_PATH env)")
	fs.StringVar(&viewerID, "viewer", "", "viewer user id (overrides viewer_id)")
	fs.StringVar(&username, "username", "", "viewer username (overrides username)")
	fs.BoolVar(&verbose, "v", false, "debug logging")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := config.LoadClient(configPath)
	if err != nil {
		fmt.Fprintln(stderr, "config:", err)
		return 1
	}
	if viewerID != "" {
		cfg.ViewerID = viewerID
	}
	if username != "" {
		cfg.Username = username
	}

	lvl := slog.LevelWarn
	if verbose {
		lvl = slog.LevelDebug
	}
	lg := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: lvl}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = log.Into(ctx, lg)

	c := coordinator.New(client.New(cfg.BaseURL, cfg.Timeout, nil), coordinator.Options{
		Viewer:  coordinator.Viewer{ID: cfg.ViewerID, Username: cfg.Username},
		Timeout: cfg.Timeout,
	})

	cmdErr := execute(ctx, c, fs.Args(), stdout)

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 2*cfg.Timeout)
	defer closeCancel()
	if err := c.Close(closeCtx); err != nil {
		lg.Warn("coordinator_close_failed", slog.String("err", err.Error()))
	}

	switch {
	case cmdErr == nil:
		return 0
	case errors.Is(cmdErr, errUsage):
		fmt.Fprintln(stderr, cmdErr)
		fs.Usage()
		return 2
	default:
		fmt.Fprintln(stderr, "error:", cmdErr)
		return 1
	}
}

var errUsage = errors.New("bad usage")

func execute(ctx context.Context, c *coordinator.Coordinator, args []string, out io.Writer) error {
	cmd, rest := args[0], args[1:]

	need := func(n int) error {
		if len(rest) < n {
			return fmt.Errorf("%s: %w", cmd, errUsage)
		}
		return nil
	}

	switch cmd {
	case "videos":
		videos, err := c.LoadFeed(ctx)
		if err != nil {
			return err
		}
		printVideos(out, videos)
		return nil

	case "like", "double-tap":
		if err := need(1); err != nil {
			return err
		}
		if _, err := c.LoadFeed(ctx); err != nil {
			return err
		}

		mutate := c.ToggleLike
		if cmd == "double-tap" {
			mutate = c.DoubleTapLike
		}
		if err := settle(ctx, func() (*coordinator.Op, error) { return mutate(ctx, rest[0]) }); err != nil {
			return err
		}

		v, _ := c.Video(rest[0])
		printVideos(out, []models.Video{v})
		return nil

	case "comments":
		if err := need(1); err != nil {
			return err
		}
		comments, err := c.LoadComments(ctx, rest[0])
		if err != nil {
			return err
		}
		printComments(out, comments)
		return nil

	case "comment":
		if err := need(2); err != nil {
			return err
		}
		text := strings.Join(rest[1:], " ")
		if err := settle(ctx, func() (*coordinator.Op, error) { return c.AddComment(ctx, rest[0], text) }); err != nil {
			return err
		}
		if comments := c.Comments(rest[0]); len(comments) > 0 {
			printComments(out, comments[:1])
		}
		return nil

	case "like-comment":
		if err := need(2); err != nil {
			return err
		}
		if _, err := c.LoadComments(ctx, rest[0]); err != nil {
			return err
		}
		if err := settle(ctx, func() (*coordinator.Op, error) { return c.ToggleCommentLike(ctx, rest[1]) }); err != nil {
			return err
		}

		for _, cm := range c.Comments(rest[0]) {
			if cm.ID == rest[1] {
				fmt.Fprintf(out, "%s\tlikes=%d\tliked=%t\n", cm.ID, cm.Likes, c.CommentLiked(cm.ID))
			}
		}
		return nil

	case "follow", "unfollow":
		if err := need(1); err != nil {
			return err
		}
		if _, err := c.LoadProfile(ctx, rest[0]); err != nil {
			return err
		}

		mutate := c.Follow
		if cmd == "unfollow" {
			mutate = c.Unfollow
		}
		if err := settle(ctx, func() (*coordinator.Op, error) { return mutate(ctx, rest[0]) }); err != nil {
			return err
		}

		p, _ := c.Profile(rest[0])
		printProfile(out, p, c.IsFollowing(rest[0]))
		return nil

	case "profile":
		if err := need(1); err != nil {
			return err
		}
		p, err := c.LoadProfile(ctx, rest[0])
		if err != nil {
			return err
		}
		printProfile(out, *p, c.IsFollowing(rest[0]))
		return nil

	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}

// settle запускает мутацию и ждёт её терминального состояния.
// (nil, nil) от координатора означает, что менять нечего.
func settle(ctx context.Context, start func() (*coordinator.Op, error)) error {
	o, err := start()
	if err != nil || o == nil {
		return err
	}

	if err := o.Wait(ctx); err != nil {
		return fmt.Errorf("%s rolled back: %w", o.Kind, err)
	}

	return nil
}

func printVideos(out io.Writer, videos []models.Video) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tAUTHOR\tLIKES\tLIKED\tCOMMENTS\tSHARES\tDESCRIPTION")
	for _, v := range videos {
		fmt.Fprintf(tw, "%s\t@%s\t%d\t%t\t%d\t%d\t%s\n",
			v.ID, v.Username, v.Likes, v.IsLiked, v.Comments, v.Shares, v.Description)
	}
	_ = tw.Flush()
}

func printComments(out io.Writer, comments []models.Comment) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tAUTHOR\tLIKES\tCREATED\tTEXT")
	for _, cm := range comments {
		fmt.Fprintf(tw, "%s\t@%s\t%d\t%s\t%s\n",
			cm.ID, cm.Username, cm.Likes, cm.CreatedAt.Local().Format(time.DateTime), cm.Text)
	}
	_ = tw.Flush()
}

func printProfile(out io.Writer, p models.UserProfile, following bool) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "user\t%s (@%s)\n", p.UserID, p.Username)
	fmt.Fprintf(tw, "followers\t%d\n", p.FollowersCount)
	fmt.Fprintf(tw, "following\t%d\n", p.FollowingCount)
	fmt.Fprintf(tw, "likes\t%d\n", p.LikesCount)
	fmt.Fprintf(tw, "videos\t%d\n", p.VideosCount)
	fmt.Fprintf(tw, "you follow\t%t\n", following)
	_ = tw.Flush()
}

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"Yatube/internal/config"
	"Yatube/internal/pkg"
	"Yatube/internal/repository/database"
	"Yatube/internal/repository/redis"
	"Yatube/internal/service"

	"gorm.io/gorm"
)

const usage = `usage: manage <command> [flags]

commands:
  migrate                                         create or update tables
  group-create -title T -slug S [-description D]  create a group
  group-delete -slug S                            delete a group, its posts stay without group
  group-list [-page N]                            list groups, 10 per page
  post-delete -id N                               delete a post with its comments and image
  user-delete -username U                         delete a user with posts, comments and follows
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cfg, err := config.Load()
	if err != nil {
		fail(err)
	}
	db, err := database.Open(cfg.DBDriver, cfg.DBDSN, cfg.Debug)
	if err != nil {
		fail(err)
	}
	logger := pkg.NewLogger(os.Stdout, cfg.Debug)
	if err = runCommand(context.Background(), cfg, db, logger, os.Stdout, os.Args[1], os.Args[2:]); err != nil {
		fail(err)
	}
}

func runCommand(ctx context.Context, cfg *config.Config, db *gorm.DB, logger *pkg.Logger, out io.Writer, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	switch cmd {
	case "migrate":
		if err := fs.Parse(args); err != nil {
			return err
		}
		return database.AutoMigrate(db)

	case "group-create":
		title := fs.String("title", "", "group title")
		slug := fs.String("slug", "", "group slug used in /group/<slug>")
		desc := fs.String("description", "", "group description")
		if err := fs.Parse(args); err != nil {
			return err
		}
		g, err := service.NewGroupService(db).Create(ctx, *title, *slug, *desc)
		if err != nil {
			return err
		}
		logger.Info("manage", fmt.Sprintf("created group %d /group/%s", g.ID, g.Slug))
		return nil

	case "group-delete":
		slug := fs.String("slug", "", "group slug")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if err := service.NewGroupService(db).Delete(ctx, *slug); err != nil {
			return err
		}
		logger.Info("manage", "deleted group "+*slug)
		return nil

	case "group-list":
		page := fs.String("page", "1", "page number")
		if err := fs.Parse(args); err != nil {
			return err
		}
		groups, err := service.NewGroupService(db).Page(ctx, *page)
		if err != nil {
			return err
		}
		for _, g := range groups.Items {
			fmt.Fprintf(out, "%d\t%s\t%s\n", g.ID, g.Slug, g.Title)
		}
		fmt.Fprintf(out, "page %d of %d\n", groups.Number, groups.NumPages)
		return nil

	case "post-delete":
		id := fs.Uint64("id", 0, "post id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *id == 0 {
			return fmt.Errorf("post-delete: -id is required")
		}
		// 删除后首页缓存需要失效
		rdb, err := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		media := pkg.NewMediaStore(cfg.MediaDir, "/media/")
		return service.NewPostService(db, media, redis.NewPageCache(rdb), logger).Delete(ctx, *id)

	case "user-delete":
		username := fs.String("username", "", "username")
		if err := fs.Parse(args); err != nil {
			return err
		}
		// 顺便清掉 redis 中的登录态
		rdb, err := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		users := service.NewUserService(db, redis.NewUserRepository(rdb, cfg.AccessTTL, cfg.RefreshTTL), nil, nil, logger)
		return users.DeleteByUsername(ctx, *username)
	}
	return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "manage:", err)
	os.Exit(1)
}

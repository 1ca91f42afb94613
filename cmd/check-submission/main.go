// Command check-submission shows the request the submitter would send for a
// post and optionally sends it.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"autoblog/internal/app"
	"autoblog/internal/config"
	"autoblog/internal/database"
	"autoblog/internal/logging"
	"autoblog/internal/models"
	"autoblog/internal/submission"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	projectID := flag.String("project-id", "", "project to check")
	postID := flag.String("post-id", "", "post to render (defaults to the oldest unposted post)")
	send := flag.Bool("send", false, "send the post and mark it posted on success")
	flag.Parse()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	pid, err := uuid.Parse(*projectID)
	if err != nil {
		logger.Fatal("-project-id must be a uuid", zap.Error(err))
	}

	if err := database.Connect(database.LoadConfig(), logger); err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	ctx := context.Background()
	db := database.DB

	setting, err := submission.LatestSetting(ctx, db, pid)
	if err != nil {
		logger.Fatal("no usable auto-submission setting", zap.Error(err))
	}

	post, err := loadPost(ctx, db, pid, *postID)
	if err != nil {
		logger.Fatal("failed to load post", zap.Error(err))
	}

	valid, reason := submission.CheckBlogPostBeforeSending(post)
	headers, body, err := submission.BuildPreview(setting, submission.NewPostView(post))
	if err != nil {
		logger.Fatal("templates do not render", zap.Error(err))
	}

	fmt.Printf("POST %s\n", setting.EndpointURL)
	for name, value := range headers {
		fmt.Printf("%s: %s\n", name, value)
	}
	out, _ := json.MarshalIndent(body, "", "  ")
	fmt.Printf("\n%s\n\n", out)

	if !hasBearer(headers) {
		fmt.Println("warning: no Authorization: Bearer header is configured")
	}
	if !valid {
		fmt.Printf("post would be rejected: %s\n", reason)
	}

	if !*send {
		return
	}
	a := app.New(cfg, db, logger, app.Options{})
	if !a.Submitter.Submit(ctx, post) {
		fmt.Println("submission failed")
		os.Exit(1)
	}
	if err := a.Submitter.MarkPosted(ctx, post); err != nil {
		logger.Fatal("sent but failed to mark posted", zap.Error(err))
	}
	fmt.Println("submitted")
}

func loadPost(ctx context.Context, db *gorm.DB, projectID uuid.UUID, rawPostID string) (*models.GeneratedBlogPost, error) {
	var post models.GeneratedBlogPost
	query := db.WithContext(ctx).Preload("Project").Preload("TitleSuggestion").Where("project_id = ?", projectID)
	if rawPostID != "" {
		id, err := uuid.Parse(rawPostID)
		if err != nil {
			return nil, err
		}
		query = query.Where("id = ?", id)
	} else {
		query = query.Where("posted = ?", false).Order("created_at ASC")
	}
	if err := query.First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func hasBearer(headers map[string]string) bool {
	for name, value := range headers {
		if strings.EqualFold(name, "Authorization") && strings.HasPrefix(strings.ToLower(value), "bearer ") {
			return true
		}
	}
	return false
}

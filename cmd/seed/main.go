package main

import (
	"flag"
	"log"
	"math/rand"
	"time"

	"github.com/dmartov/miniblog/internal/client"
)

var users = []struct {
	name string
	pass string
}{
	{"dim", "dim-dev-password"},
	{"alice", "alice-dev-password"},
	{"bob", "bob-dev-password"},
	{"carol", "carol-dev-password"},
}

var posts = []string{
	"Hello from miniblog! This is the first post.",
	"What editors is everyone using these days?",
	"Shipped a small side project over the weekend. Feels good.",
	"Hot take: plain SQL beats every ORM for small services.",
	"Reminder to back up your databases, folks.",
	"Reading up on token-based auth. The stateless trade-offs are interesting.",
	"Does anyone else keep a plain-text TODO file? Works better than any app I've tried.",
	"Today I learned about SQLite's WAL mode. Neat stuff.",
}

var comments = []string{
	"Great post!",
	"I disagree, but it's a fun discussion.",
	"Can you share more details?",
	"This matches my experience exactly.",
	"Bookmarking this one.",
	"Came here to say the same thing.",
	"Interesting take. I wonder how it holds up at scale.",
	"Thanks for writing this up!",
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "miniblog server URL")
	flag.Parse()

	log.Printf("Seeding database at %s...\n", *baseURL)

	// Register all users and keep their authenticated clients
	var clients []*client.Client
	for _, u := range users {
		c := client.New(*baseURL)
		if err := c.RegisterOrLogin(u.name, u.pass); err != nil {
			log.Fatalf("register %s: %v", u.name, err)
		}
		log.Printf("✓ Registered user: %s", u.name)
		clients = append(clients, c)
	}

	// Create posts from random users
	var postIDs []int64
	for _, body := range posts {
		idx := rand.Intn(len(clients))
		c := clients[idx]

		post, err := c.CreatePost(body)
		if err != nil {
			log.Printf("✗ Failed to create post: %v", err)
			continue
		}
		postIDs = append(postIDs, post.ID)
		log.Printf("✓ Posted #%d (by %s)", post.ID, users[idx].name)

		// Small delay to spread out created_at times
		time.Sleep(50 * time.Millisecond)
	}

	// Add comments from random users
	for _, postID := range postIDs {
		// 0-3 comments per post
		numComments := rand.Intn(4)
		for i := 0; i < numComments; i++ {
			idx := rand.Intn(len(clients))
			c := clients[idx]
			body := comments[rand.Intn(len(comments))]

			comment, err := c.CreateComment(postID, body)
			if err != nil {
				log.Printf("✗ Failed to comment: %v", err)
				continue
			}
			log.Printf("✓ Comment #%d on post #%d (by %s)", comment.ID, postID, users[idx].name)
		}
	}

	log.Println("Seeding complete.")
}

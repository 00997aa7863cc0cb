package embedding

import (
	"fmt"
	"os"

	"github.com/openai/openai-go"
)

// Client wraps the OpenAI client shared by the embedder, the generation
// capability, and the language pipeline.
type Client struct {
	client *openai.Client
}

// NewClient creates an OpenAI client, reading OPENAI_API_KEY from the
// environment.
func NewClient() (*Client, error) {
	if os.Getenv("OPENAI_API_KEY") == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	client := openai.NewClient()
	return &Client{client: &client}, nil
}

// Client exposes the underlying OpenAI client for other packages.
func (c *Client) Client() *openai.Client {
	return c.client
}

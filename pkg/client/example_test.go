package client_test

import (
	"context"
	"fmt"
	"log"

	"github.com/fbos/fieldservice/pkg/client"
)

// Example demonstrates checking the caller's subscription
func Example() {
	c := client.NewClient(client.Config{
		BaseURL: "https://api.example.com",
	})
	c.SetToken("access-token")

	ctx := context.Background()

	status, err := c.Subscription().Status(ctx)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Subscription: %s\n", status.Status)
}

// ExampleSubscriptionService_Checkout demonstrates starting a checkout
func ExampleSubscriptionService_Checkout() {
	c := client.NewClient(client.Config{
		BaseURL: "https://api.example.com",
	})
	c.SetToken("access-token")

	session, err := c.Subscription().Checkout(context.Background())
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Open %s to pay\n", session.URL)
}

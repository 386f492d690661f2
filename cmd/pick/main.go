// Command pick drives a full picker flow from the terminal: obtain an access
// token, create a picker session, open the picker in the browser, poll until
// the selection completes, and print the selected items as JSON. It stands in
// for the web frontend when smoke-testing a deployment.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/skratchdot/open-golang/open"

	"github.com/pickframe/photos-front/internal/config"
	"github.com/pickframe/photos-front/internal/picker"
)

func main() {
	conf := flag.String("config", "", "gateway config file; supplies the picker API key and item cap")
	gateway := flag.String("gateway", "", "base URL of a running photos-front gateway (fetches the token via /photos-token)")
	cookieValue := flag.String("cookie", "", "pm_oauth_session cookie value for the gateway request")
	token := flag.String("token", "", "use this access token directly instead of asking the gateway")
	apiKey := flag.String("api-key", "", "Google API key for the Picker API (overrides config and GOOGLE_API_KEY)")
	maxItems := flag.Int("max-items", 0, "maximum number of items the session allows (overrides config)")
	timeout := flag.Duration("timeout", picker.DefaultWaitTimeout, "how long to wait for the selection")
	noBrowser := flag.Bool("no-browser", false, "print the picker URI instead of opening a browser")
	flag.Parse()

	_ = godotenv.Load()

	key := *apiKey
	itemCap := *maxItems
	if *conf != "" {
		cfg, err := config.Load(*conf)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		if key == "" {
			key = string(cfg.Picker.APIKey)
		}
		if itemCap <= 0 {
			itemCap = cfg.Picker.MaxItemCount
		}
	}
	if key == "" {
		key = os.Getenv("GOOGLE_API_KEY")
	}

	accessToken := *token
	if accessToken == "" {
		if *gateway == "" || *cookieValue == "" {
			fmt.Fprintln(os.Stderr, "Error: either -token or both -gateway and -cookie are required")
			os.Exit(1)
		}
		var err error
		accessToken, err = fetchToken(*gateway, *cookieValue)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error fetching token: %v\n", err)
			os.Exit(1)
		}
	}

	client := picker.NewClient(
		picker.WithAPIKey(key),
		picker.WithMaxItemCount(itemCap),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess, err := client.CreateSession(ctx, accessToken)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating picker session: %v\n", err)
		os.Exit(1)
	}

	if *noBrowser {
		fmt.Fprintf(os.Stderr, "Open this URL to pick photos:\n%s\n", sess.PickerURI)
	} else if err := open.Run(sess.PickerURI); err != nil {
		fmt.Fprintf(os.Stderr, "Could not open browser (%v); open this URL manually:\n%s\n", err, sess.PickerURI)
	}

	items, err := client.WaitForSelection(ctx, accessToken, sess.ID, picker.WaitOptions{
		Timeout: *timeout,
		OnProgress: func(message string) {
			fmt.Fprintln(os.Stderr, message)
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error waiting for selection: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding items: %v\n", err)
		os.Exit(1)
	}
}

// fetchToken asks a running gateway for a fresh access token using a browser
// session cookie
func fetchToken(gateway, cookieValue string) (string, error) {
	req, err := http.NewRequest(http.MethodGet, gateway+"/photos-token", nil)
	if err != nil {
		return "", err
	}
	req.AddCookie(&http.Cookie{Name: "pm_oauth_session", Value: cookieValue})

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("gateway response missing access token")
	}
	return body.AccessToken, nil
}

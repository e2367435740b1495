package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// CLI admin del broker: habla con los endpoints server-to-server usando
// el shared secret del tenant.

type client struct {
	BaseURL   string
	Secret    string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
}

func (c *client) do(method, path string, body []byte, headers map[string]string) (int, []byte, error) {
	u := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequest(method, u, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("X-Client-Secret", c.Secret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) print(status int, body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Println(string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Println(string(body))
	} else {
		fmt.Printf("status=%d\n", status)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	var (
		baseURL = envOr("BROKERJOHN_URL", "http://localhost:8080")
		secret  = envOr("BROKERJOHN_SECRET", "")
		out     = envOr("BROKERJOHN_OUT", "text")
		timeout = 30 * time.Second
	)

	root := &cobra.Command{
		Use:   "brokerjohn",
		Short: "CLI admin del broker (endpoints con X-Client-Secret)",
	}

	root.PersistentFlags().StringVar(&baseURL, "url", baseURL, "URL base del broker (env BROKERJOHN_URL)")
	root.PersistentFlags().StringVar(&secret, "secret", secret, "shared secret del tenant (env BROKERJOHN_SECRET)")
	root.PersistentFlags().StringVar(&out, "out", out, "Formato de salida: json|text")

	cl := &client{HTTP: &http.Client{Timeout: timeout}}
	sync := func() {
		cl.BaseURL, cl.Secret, cl.OutFormat = baseURL, secret, out
	}

	requireSecret := func(cmd *cobra.Command, args []string) error {
		sync()
		if cl.Secret == "" {
			return fmt.Errorf("falta el secret (flag --secret o env BROKERJOHN_SECRET)")
		}
		return nil
	}

	// ping: GET /health, no requiere secret
	pingCmd := &cobra.Command{
		Use:   "ping",
		Short: "Ping al broker (GET /health)",
		RunE: func(cmd *cobra.Command, args []string) error {
			sync()
			status, body, err := cl.do("GET", "/health", nil, nil)
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}

	// ─── user ───
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Operaciones sobre usuarios de un tenant",
	}

	userGetCmd := &cobra.Command{
		Use:     "get <clientID> <userID>",
		Short:   "Trae un usuario",
		Args:    cobra.ExactArgs(2),
		PreRunE: requireSecret,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("GET", "/user/"+url.PathEscape(args[0])+"/"+url.PathEscape(args[1]), nil, nil)
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}

	var listPage, listLimit int
	userListCmd := &cobra.Command{
		Use:     "list <clientID>",
		Short:   "Lista usuarios del tenant",
		Args:    cobra.ExactArgs(1),
		PreRunE: requireSecret,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if listPage > 0 {
				q.Set("page", fmt.Sprint(listPage))
			}
			if listLimit > 0 {
				q.Set("limit", fmt.Sprint(listLimit))
			}
			path := "/users/" + url.PathEscape(args[0])
			if enc := q.Encode(); enc != "" {
				path += "?" + enc
			}
			status, body, err := cl.do("GET", path, nil, nil)
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}
	userListCmd.Flags().IntVar(&listPage, "page", 1, "página (1-based)")
	userListCmd.Flags().IntVar(&listLimit, "limit", 0, "tamaño de página (0 = sin paginar)")

	userDeleteCmd := &cobra.Command{
		Use:     "delete <clientID> <userID>",
		Short:   "Borra un usuario",
		Args:    cobra.ExactArgs(2),
		PreRunE: requireSecret,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("DELETE", "/user/"+url.PathEscape(args[0])+"/"+url.PathEscape(args[1]), nil, nil)
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}

	userUpdateCmd := &cobra.Command{
		Use:     "update <clientID> <userID> <json>",
		Short:   "Actualiza campos permitidos del usuario (body JSON)",
		Args:    cobra.ExactArgs(3),
		PreRunE: requireSecret,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !json.Valid([]byte(args[2])) {
				return fmt.Errorf("el body no es JSON válido")
			}
			status, body, err := cl.do("PUT", "/user/"+url.PathEscape(args[0])+"/"+url.PathEscape(args[1]), []byte(args[2]), nil)
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}

	userCmd.AddCommand(userGetCmd, userListCmd, userDeleteCmd, userUpdateCmd)

	// ─── session ───
	var sessionToken string
	sessionGetCmd := &cobra.Command{
		Use:     "session <public|private> <clientID>",
		Short:   "Trae un session document (requiere --token)",
		Args:    cobra.ExactArgs(2),
		PreRunE: requireSecret,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope := args[0]
			if scope != "public" && scope != "private" {
				return fmt.Errorf("scope inválido %q (public|private)", scope)
			}
			if sessionToken == "" {
				return fmt.Errorf("falta --token")
			}
			status, body, err := cl.do("GET", "/session/"+scope+"/"+url.PathEscape(args[1]), nil, map[string]string{
				"Authorization": "Bearer " + sessionToken,
			})
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}
	sessionGetCmd.Flags().StringVar(&sessionToken, "token", "", "access token del usuario")

	root.AddCommand(pingCmd, userCmd, sessionGetCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

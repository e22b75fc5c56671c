// Command oauthablctl administra clientes de oauthabl vía /clients.
package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	cl := &client{
		BaseURL:   envOr("OAUTHABL_URL", "http://localhost:8080"),
		APIKey:    envOr("OAUTHABL_ADMIN_KEY", ""),
		OutFormat: envOr("OAUTHABL_OUT", "text"),
		HTTP:      &http.Client{Timeout: 30 * time.Second},
		Out:       out,
	}

	root := &cobra.Command{
		Use:           "oauthablctl",
		Short:         "CLI admin para oauthabl",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cl.OutFormat != "json" && cl.OutFormat != "text" {
				return fmt.Errorf("--out debe ser json o text")
			}
			return nil
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&cl.BaseURL, "url", cl.BaseURL, "URL base del servicio (env OAUTHABL_URL)")
	root.PersistentFlags().StringVar(&cl.APIKey, "admin-api-key", cl.APIKey, "API key de /clients (env OAUTHABL_ADMIN_KEY)")
	root.PersistentFlags().StringVar(&cl.OutFormat, "out", cl.OutFormat, "Formato de salida: json|text")

	root.AddCommand(pingCmd(cl), clientsCmd(cl))
	return root
}

// ping: GET /readyz
func pingCmd(cl *client) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Verifica que el servicio y su store respondan",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := cl.call("ping", http.MethodGet, "/readyz", nil)
			if err != nil {
				return err
			}
			cl.print(body)
			return nil
		},
	}
}

func clientsCmd(cl *client) *cobra.Command {
	cmd := &cobra.Command{Use: "clients", Short: "Operaciones sobre clientes (tenants)"}

	list := &cobra.Command{
		Use:   "list",
		Short: "Lista los clientes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := cl.call("list", http.MethodGet, "/clients", nil)
			if err != nil {
				return err
			}
			return cl.printClients(body)
		},
	}

	get := &cobra.Command{
		Use:   "get <clientId>",
		Short: "Muestra un cliente",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := cl.call("get", http.MethodGet, "/clients/"+args[0], nil)
			if err != nil {
				return err
			}
			cl.print(body)
			return nil
		},
	}

	var name string
	var extras []string
	create := &cobra.Command{
		Use:   "create",
		Short: "Crea un cliente (id y secret los genera el servidor)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("--name es requerido")
			}
			payload, err := parseExtras(extras)
			if err != nil {
				return err
			}
			payload["name"] = name
			body, err := cl.call("create", http.MethodPost, "/clients", payload)
			if err != nil {
				return err
			}
			cl.print(body)
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "Nombre del cliente")
	create.Flags().StringArrayVar(&extras, "set", nil, "Campo extra key=value (repetible)")

	var newName string
	var sets []string
	update := &cobra.Command{
		Use:   "update <clientId>",
		Short: "Actualiza campos de un cliente (id y secret son inmutables)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := parseExtras(sets)
			if err != nil {
				return err
			}
			if newName != "" {
				payload["name"] = newName
			}
			if len(payload) == 0 {
				return fmt.Errorf("nada para actualizar: usar --name o --set")
			}
			body, err := cl.call("update", http.MethodPatch, "/clients/"+args[0], payload)
			if err != nil {
				return err
			}
			cl.print(body)
			return nil
		},
	}
	update.Flags().StringVar(&newName, "name", "", "Nuevo nombre")
	update.Flags().StringArrayVar(&sets, "set", nil, "Campo key=value (repetible)")

	del := &cobra.Command{
		Use:   "delete <clientId>",
		Short: "Borra un cliente (sus usuarios y sesiones no se borran)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := cl.call("delete", http.MethodDelete, "/clients/"+args[0], nil)
			if err != nil {
				return err
			}
			cl.print(body)
			return nil
		},
	}

	cmd.AddCommand(list, get, create, update, del)
	return cmd
}

func parseExtras(kvs []string) (map[string]any, error) {
	out := make(map[string]any, len(kvs))
	for _, s := range kvs {
		k, v, ok := strings.Cut(s, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("--set inválido %q (esperado key=value)", s)
		}
		switch k {
		case "id", "secret":
			return nil, fmt.Errorf("%s no se puede setear", k)
		}
		out[k] = v
	}
	return out, nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

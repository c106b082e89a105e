package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentplane/agentplane/faults"
	"github.com/agentplane/agentplane/resource"
)

type resourceClientOptions struct {
	serverURL  string
	instanceID string
	provider   string
	principal  string
	groups     []string
}

func (o *resourceClientOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.serverURL, "server", "http://localhost:8080", "Base URL of the management server")
	cmd.Flags().StringVar(&o.instanceID, "instance", "", "Instance identifier of the deployment")
	cmd.Flags().StringVar(&o.provider, "provider", "", "Resource provider name, such as AgentPlane.Prompt")
	cmd.Flags().StringVar(&o.principal, "principal", "", "Principal identifier presented to the authorization gate")
	cmd.Flags().StringSliceVar(&o.groups, "group", nil, "Group the principal belongs to (repeatable)")
	_ = cmd.MarkFlagRequired("instance")
	_ = cmd.MarkFlagRequired("provider")
}

func (o *resourceClientOptions) url(resourcePath string) string {
	return strings.TrimSuffix(o.serverURL, "/") +
		"/instances/" + o.instanceID +
		"/providers/" + o.provider +
		"/" + strings.TrimPrefix(resourcePath, "/")
}

func (o *resourceClientOptions) do(cmd *cobra.Command, method string, resourcePath string, body []byte) ([]byte, error) {
	request, err := http.NewRequestWithContext(cmd.Context(), method, o.url(resourcePath), bytes.NewReader(body))
	if err != nil {
		return nil, faults.Validation("failed to build the request", err)
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if o.principal != "" {
		request.Header.Set("X-Principal-Id", o.principal)
	}
	if len(o.groups) > 0 {
		request.Header.Set("X-Principal-Groups", strings.Join(o.groups, ","))
	}

	client := &http.Client{Timeout: 30 * time.Second}
	response, err := client.Do(request)
	if err != nil {
		return nil, faults.Internal("the management server is unreachable", err)
	}
	defer func() { _ = response.Body.Close() }()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, faults.Internal("failed to read the response", err)
	}
	if response.StatusCode >= 400 {
		return nil, serverError(response.StatusCode, payload)
	}
	return payload, nil
}

func serverError(status int, payload []byte) error {
	var parsed struct {
		Error struct {
			Category string `json:"category"`
			Message  string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(payload, &parsed); err == nil && parsed.Error.Message != "" {
		return faults.NewTypedError(faults.ErrorCategory(parsed.Error.Category), parsed.Error.Message, nil)
	}
	return faults.Internal(fmt.Sprintf("the management server returned status %d", status), nil)
}

func newResourceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "resource",
		GroupID: groupUserFacing,
		Short:   "Operate on resources held by a running management server",
	}

	cmd.AddCommand(newResourceGetCommand())
	cmd.AddCommand(newResourceListCommand())
	cmd.AddCommand(newResourceUpsertCommand())
	cmd.AddCommand(newResourceDeleteCommand())

	return cmd
}

func newResourceGetCommand() *cobra.Command {
	options := &resourceClientOptions{}
	cmd := &cobra.Command{
		Use:   "get <resource-path>",
		Short: "Fetch a resource by its provider-relative path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := options.do(cmd, http.MethodGet, args[0], nil)
			if err != nil {
				return err
			}
			return printJSON(cmd, payload)
		},
	}
	options.register(cmd)
	return cmd
}

func newResourceListCommand() *cobra.Command {
	options := &resourceClientOptions{}
	var (
		resourceType string
		filter       string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a resource collection, optionally filtered with a jq expression",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := options.do(cmd, http.MethodGet, "/"+resourceType, nil)
			if err != nil {
				return err
			}
			if filter == "" {
				return printJSON(cmd, payload)
			}

			var values []any
			if err := json.Unmarshal(payload, &values); err != nil {
				return faults.Internal("the server response is not a resource list", err)
			}
			filtered, err := resource.FilterList(values, filter)
			if err != nil {
				return err
			}
			encoded, err := json.Marshal(filtered)
			if err != nil {
				return faults.Internal("failed to encode the filtered list", err)
			}
			return printJSON(cmd, encoded)
		},
	}
	options.register(cmd)
	cmd.Flags().StringVar(&resourceType, "type", "", "Resource type collection to list, such as prompts")
	cmd.Flags().StringVar(&filter, "filter", "", "jq expression applied to the returned list")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newResourceUpsertCommand() *cobra.Command {
	options := &resourceClientOptions{}
	var fromFile string
	cmd := &cobra.Command{
		Use:   "upsert <resource-path>",
		Short: "Create or update a resource from a JSON definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				body []byte
				err  error
			)
			if fromFile == "-" {
				body, err = io.ReadAll(cmd.InOrStdin())
			} else {
				body, err = os.ReadFile(fromFile)
			}
			if err != nil {
				return faults.Validation("failed to read the resource definition", err)
			}

			payload, err := options.do(cmd, http.MethodPost, args[0], body)
			if err != nil {
				return err
			}
			return printJSON(cmd, payload)
		},
	}
	options.register(cmd)
	cmd.Flags().StringVarP(&fromFile, "file", "f", "", "File holding the JSON resource definition ('-' for stdin)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newResourceDeleteCommand() *cobra.Command {
	options := &resourceClientOptions{}
	cmd := &cobra.Command{
		Use:   "delete <resource-path>",
		Short: "Soft-delete a resource; its name stays reserved until purged",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := options.do(cmd, http.MethodDelete, args[0], nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
	options.register(cmd)
	return cmd
}

func printJSON(cmd *cobra.Command, payload []byte) error {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, bytes.TrimSpace(payload), "", "  "); err != nil {
		_, writeErr := cmd.OutOrStdout().Write(payload)
		return writeErr
	}
	fmt.Fprintln(cmd.OutOrStdout(), pretty.String())
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/AzielCF/az-relay/channel/domain/instance"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var instanceCmd = &cobra.Command{
	Use:   "instance",
	Short: "Drive gateway instances from the terminal",
}

var (
	instanceNumber  string
	instanceRefresh bool
)

func init() {
	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Provision a new instance on the gateway",
		Args:  cobra.ExactArgs(1),
		RunE: runInstance(func(ctx context.Context, name string) error {
			res, err := lifecycleUsecase.Create(ctx, name, instance.Settings{Number: instanceNumber, QRCode: true})
			if err != nil {
				return err
			}
			printProvision(res)
			return nil
		}),
	}
	createCmd.Flags().StringVar(&instanceNumber, "number", "", "phone number to pair with a code instead of a QR")

	connectCmd := &cobra.Command{
		Use:   "connect <name>",
		Short: "Start pairing, creating the instance when the gateway does not know it",
		Args:  cobra.ExactArgs(1),
		RunE: runInstance(func(ctx context.Context, name string) error {
			res, err := lifecycleUsecase.Connect(ctx, name, instanceNumber)
			if err != nil {
				return err
			}
			printProvision(res)
			return nil
		}),
	}
	connectCmd.Flags().StringVar(&instanceNumber, "number", "", "phone number to pair with a code instead of a QR")

	statusCmd := &cobra.Command{
		Use:   "status <name>",
		Short: "Ask the gateway for the live connection state",
		Args:  cobra.ExactArgs(1),
		RunE: runInstance(func(ctx context.Context, name string) error {
			inst, err := lifecycleUsecase.State(ctx, name)
			if err != nil {
				return err
			}
			fmt.Printf("%s %s (%s)\n", inst.Name, statusColor(inst.Status), humanize.Time(inst.LastUpdate))
			return nil
		}),
	}

	pairingCmd := &cobra.Command{
		Use:   "pairing <name>",
		Short: "Print the current pairing QR or code",
		Args:  cobra.ExactArgs(1),
		RunE: runInstance(func(ctx context.Context, name string) error {
			cred, err := pairingUsecase.GetPairingCredential(ctx, name, instanceRefresh)
			if err != nil {
				return err
			}
			color.Cyan("%s pairing (%s, from %s, expires %s)", cred.Instance, cred.Kind, cred.Source, humanize.Time(cred.ExpiresAt))
			if cred.PairingCode != "" {
				color.New(color.Bold).Printf("code: %s\n", cred.PairingCode)
			}
			fmt.Println(cred.Payload)
			return nil
		}),
	}
	pairingCmd.Flags().BoolVar(&instanceRefresh, "refresh", false, "ignore the cached credential")

	logoutCmd := &cobra.Command{
		Use:   "logout <name>",
		Short: "Unlink the device, keeping the instance",
		Args:  cobra.ExactArgs(1),
		RunE: runInstance(func(ctx context.Context, name string) error {
			if err := lifecycleUsecase.Disconnect(ctx, name); err != nil {
				return err
			}
			color.Yellow("%s logged out", name)
			return nil
		}),
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove the instance from the gateway",
		Args:  cobra.ExactArgs(1),
		RunE: runInstance(func(ctx context.Context, name string) error {
			if err := lifecycleUsecase.Delete(ctx, name); err != nil {
				return err
			}
			color.Yellow("%s deleted", name)
			return nil
		}),
	}

	instanceCmd.AddCommand(createCmd, connectCmd, statusCmd, pairingCmd, logoutCmd, deleteCmd)
	rootCmd.AddCommand(instanceCmd)
}

func runInstance(fn func(ctx context.Context, name string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer StopApp()
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		cmd.SilenceUsage = true
		if err := fn(ctx, args[0]); err != nil {
			color.Red("%s: %v", args[0], err)
			return err
		}
		return nil
	}
}

func printProvision(res *instance.ProvisionResult) {
	fmt.Printf("%s %s\n", res.Name, statusColor(res.Status))
	if res.Pairing != nil {
		color.Cyan("pairing %s expires %s", res.Pairing.Kind, humanize.Time(res.Pairing.ExpiresAt))
		if res.Pairing.PairingCode != "" {
			color.New(color.Bold).Printf("code: %s\n", res.Pairing.PairingCode)
		}
	}
}

func statusColor(s instance.Status) string {
	switch s {
	case instance.StatusConnected:
		return color.GreenString(string(s))
	case instance.StatusQRReady, instance.StatusConnecting, instance.StatusCreated:
		return color.YellowString(string(s))
	case instance.StatusDisconnected:
		return color.RedString(string(s))
	default:
		return string(s)
	}
}

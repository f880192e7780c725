package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"cell-guard/internal/domain/entity"
	"cell-guard/internal/infrastructure/controller"
)

var actuatorSlave uint8

var actuatorCmd = &cobra.Command{
	Use:   "actuator <start|stop|fast|slow|speed N|read ADDR|write ADDR VALUE>",
	Short: "Разовая команда контроллеру станка",
	Long:  "Подключается к ACTUATOR_ADDRESS, выполняет одну команду и отключается. Адреса логические, на линии 2a+1.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.ActuatorAddress == "" {
			return fmt.Errorf("%w: ACTUATOR_ADDRESS is empty", entity.ErrActuatorNotConnected)
		}

		link := controller.NewLink(controller.NewModbusTransport(cfg.ActuatorAddress, cfg.ActuatorTimeout), cfg.ActuatorAddress)
		if err := link.Connect(); err != nil {
			return err
		}
		defer link.Disconnect()

		return runActuator(link, args, actuatorSlave, cmd.OutOrStdout())
	},
}

func init() {
	actuatorCmd.Flags().Uint8Var(&actuatorSlave, "slave", entity.SlaveRobotController, "ведомое устройство для read/write")
}

// runActuator выполняет одну команду оператора на подключённом контроллере
func runActuator(link *controller.Link, args []string, slave byte, out io.Writer) error {
	op, rest := args[0], args[1:]
	want := map[string]int{"start": 0, "stop": 0, "fast": 0, "slow": 0, "speed": 1, "read": 1, "write": 2}
	n, ok := want[op]
	if !ok {
		return fmt.Errorf("%w: unknown operation %q", entity.ErrInvalidCommandArgument, op)
	}
	if len(rest) != n {
		return fmt.Errorf("%w: %s expects %d argument(s), got %d", entity.ErrInvalidCommandArgument, op, n, len(rest))
	}

	var err error
	switch op {
	case "start":
		err = link.Start()
	case "stop":
		err = link.Stop()
	case "fast":
		err = link.Fast()
	case "slow":
		err = link.Slow()
	case "speed":
		var speed int
		if speed, err = strconv.Atoi(rest[0]); err != nil {
			return fmt.Errorf("%w: speed %q", entity.ErrInvalidCommandArgument, rest[0])
		}
		err = link.SetSpeed(speed)
	case "read":
		var addr uint16
		if addr, err = parseRegister(rest[0]); err != nil {
			return err
		}
		var value uint16
		if value, err = link.ReadRegister(addr, slave); err != nil {
			return err
		}
		fmt.Fprintf(out, "R%d = %d\n", addr, value)
		return nil
	case "write":
		var addr, value uint16
		if addr, err = parseRegister(rest[0]); err != nil {
			return err
		}
		if value, err = parseRegister(rest[1]); err != nil {
			return err
		}
		err = link.WriteRegister(addr, value, slave)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s: ok\n", op)
	return nil
}

func parseRegister(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a register value", entity.ErrInvalidCommandArgument, s)
	}
	return uint16(v), nil
}

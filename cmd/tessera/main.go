// Command tessera builds the transaction manager core against a
// configured database and an ephemeral keyring, logs that it is
// initialized, and exits. This is a thin wiring entrypoint, not an
// HTTP/gRPC server - the façade that would sit in front of the core is
// out of scope here.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/NicolasMassart/tessera/internal/rawtxstore"
	"github.com/NicolasMassart/tessera/internal/txnmgr"
	"github.com/NicolasMassart/tessera/internal/txstore"
	"github.com/NicolasMassart/tessera/pkg/enclave"
	"github.com/NicolasMassart/tessera/pkg/log"
	"github.com/NicolasMassart/tessera/pkg/partyinfo"
	"github.com/NicolasMassart/tessera/pkg/persistence"
	"github.com/NicolasMassart/tessera/pkg/resendmgr"
	"github.com/NicolasMassart/tessera/pkg/tmconf"
	"github.com/NicolasMassart/tessera/pkg/tmtypes"
)

var configFile string

func main() {
	root := &cobra.Command{
		Use:   "tessera",
		Short: "Private transaction manager core",
		RunE:  run,
	}
	root.Flags().StringVar(&configFile, "config", "./tessera.config.yaml", "path to the YAML config file")
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// rootConfig is the top-level config document this binary loads via
// viper; each section maps onto one of the config structs the rest of
// the module consumes.
type rootConfig struct {
	Log       tmconf.LogConfig        `mapstructure:"log"`
	DB        tmconf.DBConfig         `mapstructure:"db"`
	TxManager tmconf.TxnManagerConfig `mapstructure:"txManager"`
	Enclave   tmconf.EnclaveConfig    `mapstructure:"enclave"`
	PartyInfo tmconf.PartyInfoConfig  `mapstructure:"partyInfo"`
}

func run(cmd *cobra.Command, args []string) error {
	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config %s: %w", configFile, err)
	}

	var conf rootConfig
	if err := v.Unmarshal(&conf); err != nil {
		return fmt.Errorf("parsing config %s: %w", configFile, err)
	}

	log.InitConfig(&conf.Log)
	ctx := context.Background()

	p, err := persistence.NewPersistence(ctx, &conf.DB)
	if err != nil {
		return err
	}
	defer p.Close()

	e, err := buildEnclave(&conf.Enclave)
	if err != nil {
		return err
	}

	publisher, err := partyinfo.NewRestyPublisher(&conf.PartyInfo)
	if err != nil {
		return err
	}

	store := txstore.New()
	rawStore := rawtxstore.New()
	resendManager := resendmgr.New(e, store)

	tm := txnmgr.New(p, e, publisher, resendManager, store, rawStore, &conf.TxManager)
	_ = tm

	log.L(ctx).Info("transaction manager core initialized")
	return nil
}

func buildEnclave(conf *tmconf.EnclaveConfig) (enclave.Enclave, error) {
	// A real deployment loads the keyring from conf.KeyringFile; the
	// reference build here generates an ephemeral key pair so the
	// binary can start without any external key material.
	pub, priv, err := enclave.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	keyring := map[tmtypes.PublicKey]*[32]byte{pub: priv}
	_ = conf
	return enclave.New(keyring, pub, nil), nil
}

// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sops wraps the SOPS binary store for encrypting small values at
// rest in shared object storage. Master keys are configured through the
// environment, using Google and/or AWS KMS.
package sops

import (
	"errors"
	"fmt"
	"os"

	sopsapi "github.com/getsops/sops/v3"
	"github.com/getsops/sops/v3/aes"
	scommon "github.com/getsops/sops/v3/cmd/sops/common"
	"github.com/getsops/sops/v3/config"
	"github.com/getsops/sops/v3/decrypt"
	"github.com/getsops/sops/v3/gcpkms"
	skeys "github.com/getsops/sops/v3/keys"
	awskms "github.com/getsops/sops/v3/kms"
	jsonstore "github.com/getsops/sops/v3/stores/json"
	"github.com/getsops/sops/v3/version"
)

// Environment variables used to configure master keys for encryption
const (
	envGcpKmsResourceId = "PROOFHOUND_GCP_KMS_RESOURCE_ID"
	envAwsKmsKeyArns    = "PROOFHOUND_AWS_KMS_KEY_ARNS"
	envAwsKmsProfile    = "PROOFHOUND_AWS_KMS_PROFILE"
)

// Decrypt decrypts SOPS binary-format data. Decryption key sources are
// resolved by the SOPS library itself
func Decrypt(data []byte) ([]byte, error) {
	return decrypt.Data(data, "binary")
}

// Encrypt encrypts data in SOPS binary format using the master keys
// configured in the environment. Data that already carries SOPS metadata
// is rejected rather than double encrypted
func Encrypt(data []byte) ([]byte, error) {
	storeConfig := &config.JSONBinaryStoreConfig{}
	store := jsonstore.NewBinaryStore(storeConfig)
	branches, err := store.LoadPlainFile(data)
	if err != nil {
		return nil, fmt.Errorf("error loading data: %w", err)
	}
	if alreadyEncrypted(branches) {
		return nil, errors.New("already encrypted")
	}
	keyGroups, err := masterKeyGroupsFromEnv()
	if err != nil {
		return nil, err
	}
	tree := sopsapi.Tree{
		Branches: branches,
		Metadata: sopsapi.Metadata{
			KeyGroups: keyGroups,
			Version:   version.Version,
		},
	}
	dataKey, errs := tree.GenerateDataKey()
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed generating data key: %v", errs)
	}
	if err := scommon.EncryptTree(scommon.EncryptTreeOpts{
		DataKey: dataKey,
		Tree:    &tree,
		Cipher:  aes.NewCipher(),
	}); err != nil {
		return nil, fmt.Errorf("failed encrypt: %w", err)
	}
	encrypted, err := store.EmitEncryptedFile(tree)
	if err != nil {
		return nil, fmt.Errorf("failed output: %w", err)
	}
	return encrypted, nil
}

// alreadyEncrypted reports whether the tree carries a SOPS metadata branch
func alreadyEncrypted(branches sopsapi.TreeBranches) bool {
	for _, branch := range branches {
		for _, item := range branch {
			if item.Key == "sops" {
				return true
			}
		}
	}
	return false
}

// masterKeyGroupsFromEnv assembles the encryption key groups configured in
// the environment. At least one master key must be configured
func masterKeyGroupsFromEnv() ([]sopsapi.KeyGroup, error) {
	var keyGroups []sopsapi.KeyGroup
	if rid := os.Getenv(envGcpKmsResourceId); rid != "" {
		var keys []skeys.MasterKey
		for _, k := range gcpkms.MasterKeysFromResourceIDString(rid) {
			keys = append(keys, k)
		}
		if len(keys) > 0 {
			keyGroups = append(keyGroups, keys)
		}
	}
	if arns := os.Getenv(envAwsKmsKeyArns); arns != "" {
		var keys []skeys.MasterKey
		profile := os.Getenv(envAwsKmsProfile)
		for _, k := range awskms.MasterKeysFromArnString(arns, nil, profile) {
			keys = append(keys, k)
		}
		if len(keys) > 0 {
			keyGroups = append(keyGroups, keys)
		}
	}
	if len(keyGroups) == 0 {
		return nil, errors.New(
			"SOPS requires at least one master key to encrypt: set " +
				envGcpKmsResourceId + " and/or " + envAwsKmsKeyArns,
		)
	}
	return keyGroups, nil
}

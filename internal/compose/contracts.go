package compose

import (
	"fmt"
	"sort"

	"github.com/kestrelworks/loom/internal/capability"
)

// contractOwner remembers which capability first declared a contract so a
// later conflicting assertion can name both parties.
type contractOwner struct {
	capName  string
	contract capability.Contract
}

// mergeContracts collects the contracts of every resolved capability.
// Identical duplicates collapse to one entry; differing assertions under
// the same name are always an error, regardless of the behavior strategy.
// All conflicts are reported in a single run.
func mergeContracts(res *resolution, result *Result) []capability.Contract {
	owners := map[string]*contractOwner{}
	var names []string

	for _, def := range res.ordered {
		for _, contract := range def.Contracts {
			owner, exists := owners[contract.Name]
			if !exists {
				owners[contract.Name] = &contractOwner{capName: def.Name, contract: contract}
				names = append(names, contract.Name)
				continue
			}
			if owner.contract.Equal(contract) {
				continue
			}
			result.addError(CodeContractConflict,
				fmt.Sprintf("contract %s asserted differently by %s and %s", contract.Name, owner.capName, def.Name),
				"Rename one of the contracts, or align their assertions")
		}
	}

	sort.Strings(names)
	contracts := make([]capability.Contract, 0, len(names))
	for _, name := range names {
		contracts = append(contracts, owners[name].contract)
	}
	return contracts
}

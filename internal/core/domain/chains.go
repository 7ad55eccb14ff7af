package domain

type ChainID string
type ChainName string

const (
	// Chain IDs
	ChainIDBSC        ChainID = "56"
	ChainIDBSCTestnet ChainID = "97"

	// Chain Names (Internal Codes)
	ChainNameBSC        ChainName = "BSC"
	ChainNameBSCTestnet ChainName = "BSC_TESTNET"
)

// ChainIDToName maps ChainID to its human-readable InternalCode/Name.
var ChainIDToName = map[ChainID]ChainName{
	ChainIDBSC:        ChainNameBSC,
	ChainIDBSCTestnet: ChainNameBSCTestnet,
}

// ChainNameToID maps Chain Name to its ID.
var ChainNameToID = map[ChainName]ChainID{
	ChainNameBSC:        ChainIDBSC,
	ChainNameBSCTestnet: ChainIDBSCTestnet,
}

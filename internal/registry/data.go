package registry

// bundledLists returns the reference data shipped with the binary. The lists
// are not exhaustive across every codex — they cover the factions and
// mission packs that appear in the indexed battle-report channels, and can
// be extended per-report via [WithExtraLists] or a YAML lists file.
func bundledLists() *Lists {
	return &Lists{
		Factions: []string{
			"Adepta Sororitas",
			"Adeptus Custodes",
			"Adeptus Mechanicus",
			"Aeldari",
			"Astra Militarum",
			"Black Templars",
			"Blood Angels",
			"Chaos Daemons",
			"Chaos Knights",
			"Chaos Space Marines",
			"Dark Angels",
			"Death Guard",
			"Drukhari",
			"Genestealer Cults",
			"Grey Knights",
			"Imperial Knights",
			"Leagues of Votann",
			"Necrons",
			"Orks",
			"Space Marines",
			"Space Wolves",
			"T'au Empire",
			"Thousand Sons",
			"Tyranids",
			"Ultramarines",
			"World Eaters",
		},
		FactionAlias: map[string]string{
			"dark eldar":        "Drukhari",
			"deldar":            "Drukhari",
			"eldar":             "Aeldari",
			"craftworlds":       "Aeldari",
			"guard":             "Astra Militarum",
			"imperial guard":    "Astra Militarum",
			"marines":           "Space Marines",
			"tau":               "T'au Empire",
			"admech":            "Adeptus Mechanicus",
			"nids":              "Tyranids",
			"sisters":           "Adepta Sororitas",
			"sisters of battle": "Adepta Sororitas",
			"custodes":          "Adeptus Custodes",
			"votann":            "Leagues of Votann",
			"gsc":               "Genestealer Cults",
			"csm":               "Chaos Space Marines",
		},
		Detachments: []string{
			"Anvil Siege Force",
			"Army of Faith",
			"Awakened Dynasty",
			"Battle Host",
			"Bully Boyz",
			"Canoptek Court",
			"Champions of Russ",
			"Combined Regiment",
			"Gladius Task Force",
			"Green Tide",
			"Hallowed Martyrs",
			"Invasion Fleet",
			"Ironstorm Spearhead",
			"Kauyon",
			"Liberator Assault Group",
			"Mont'ka",
			"Plague Company",
			"Realspace Raiders",
			"Retaliation Cadre",
			"Shield Host",
			"Skysplinter Assault",
			"Stormlance Task Force",
			"Vanguard Spearhead",
			"War Horde",
			"Wrath of the Soul Forge",
		},
		Stratagems: []string{
			"Armour of Contempt",
			"Counter-Offensive",
			"Command Re-roll",
			"Epic Challenge",
			"Fire Overwatch",
			"Go to Ground",
			"Grenade",
			"Heroic Intervention",
			"Insane Bravery",
			"Rapid Ingress",
			"Smokescreen",
			"Tank Shock",
		},
		StratAlias: map[string]string{
			"overwatch": "Fire Overwatch",
			"cp reroll": "Command Re-roll",
			"re-roll":   "Command Re-roll",
			"heroic":    "Heroic Intervention",
			"smoke":     "Smokescreen",
		},
		Objectives: []string{
			"Area Denial",
			"Assassination",
			"Behind Enemy Lines",
			"Bring It Down",
			"Capture Enemy Outpost",
			"Cleanse",
			"Containment",
			"Defend Stronghold",
			"Deploy Teleport Homers",
			"Engage on All Fronts",
			"Establish Locus",
			"Extend Battle Lines",
			"Marked for Death",
			"No Prisoners",
			"Overwhelming Force",
			"Sabotage",
			"Secure No Man's Land",
			"Storm Hostile Objective",
		},
		Enhancements: []string{
			"Adamantine Mantle",
			"Artificer Armour",
			"Bastion Plate",
			"Fire Discipline",
			"Krootskin Cloak",
			"Labyrinthine Cunning",
			"Sanctified Plate",
			"The Honour Vehement",
			"Thief of Traitors",
			"Veil of Darkness",
		},
		// Units here are the cross-faction names the phonetic index always
		// carries. Report-specific unit lists supplied by the caller are the
		// primary source for unit matching.
		Units: []string{
			"Archon",
			"Boyz",
			"Canoptek Wraiths",
			"C'tan Shard of the Void Dragon",
			"Hormagaunts",
			"Incubi",
			"Intercessor Squad",
			"Kabalite Warriors",
			"Mandrakes",
			"Predator Annihilator",
			"Predator Destructor",
			"Raider",
			"Ravager",
			"Scourges",
			"Succubus",
			"Terminator Squad",
			"Venom",
			"Wyches",
		},
		UnitAlias: map[string]string{
			"las preds":    "Predator Destructor",
			"las pred":     "Predator Destructor",
			"kabalites":    "Kabalite Warriors",
			"warriors":     "Kabalite Warriors",
			"wracks":       "Wracks",
			"terminators":  "Terminator Squad",
			"termies":      "Terminator Squad",
			"intercessors": "Intercessor Squad",
			"wraiths":      "Canoptek Wraiths",
			"void dragon":  "C'tan Shard of the Void Dragon",
			"gaunts":       "Hormagaunts",
		},
		// Game-mechanic phrases that read like entity names but are rules
		// text. A term on this list is always categorized as unknown.
		Denied: []string{
			"Battle Shock",
			"Deadly Demise",
			"Deep Strike",
			"Devastating Wounds",
			"Feel No Pain",
			"Fights First",
			"Lethal Hits",
			"Lone Operative",
			"Mortal Wounds",
			"Objective Control",
			"Scouts",
			"Stealth",
			"Sustained Hits",
			"Twin-linked",
		},
	}
}

package tile

// Идентификаторы фонового слоя
const (
	BgDirt  ID = iota + 1 // 1
	BgStone               // 2
)

// Идентификаторы среднего слоя
const (
	MidDirt    ID = iota + 1 // 1
	MidGrass                 // 2
	MidStone                 // 3
	MidBedrock               // 4
	MidClay                  // 5

	// Руды
	MidCoal // 6
	MidIron // 7
	MidGold // 8

	// Декоративные объекты на поверхности
	MidTree  // 9
	MidRock  // 10
	MidStick // 11
)

func init() {
	Register(Background, Empty, Def{Name: "air"})
	Register(Background, BgDirt, Def{Name: "dirt_wall", Drop: BgDirt})
	Register(Background, BgStone, Def{Name: "stone_wall", Drop: BgStone})

	Register(Mid, Empty, Def{Name: "air"})
	Register(Mid, MidDirt, Def{Name: "dirt", Solid: true, Drop: MidDirt})
	Register(Mid, MidGrass, Def{Name: "grass", Solid: true, Drop: MidDirt})
	Register(Mid, MidStone, Def{Name: "stone", Solid: true, Drop: MidStone})
	Register(Mid, MidBedrock, Def{Name: "bedrock", Solid: true, Indestructible: true})
	Register(Mid, MidClay, Def{Name: "clay", Solid: true, Drop: MidClay})
	Register(Mid, MidCoal, Def{Name: "coal_ore", Solid: true, Drop: MidCoal})
	Register(Mid, MidIron, Def{Name: "iron_ore", Solid: true, Drop: MidIron})
	Register(Mid, MidGold, Def{Name: "gold_ore", Solid: true, Drop: MidGold})
	Register(Mid, MidTree, Def{Name: "tree", Drop: MidTree})
	Register(Mid, MidRock, Def{Name: "rock", Drop: MidRock})
	Register(Mid, MidStick, Def{Name: "stick", Drop: MidStick})
}

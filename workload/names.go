package workload

var firstNames = []string{
	"Ada", "Alan", "Alice", "Amelia", "Ava", "Barbara", "Benjamin", "Carl",
	"Charlotte", "Chloe", "Daniel", "David", "Edith", "Elena", "Elijah",
	"Emily", "Emma", "Ethan", "Evelyn", "Frances", "Frank", "Grace", "Harper",
	"Henry", "Isabella", "Jack", "James", "Joan", "John", "Julia", "Leo",
	"Liam", "Linus", "Lucas", "Margaret", "Mason", "Mia", "Noah", "Olivia",
	"Oscar", "Rosa", "Ruth", "Samuel", "Sophia", "Theo", "Victor", "Walter",
	"William", "Zoe",
}

var lastNames = []string{
	"Adams", "Allen", "Baker", "Bell", "Brooks", "Brown", "Campbell", "Carter",
	"Clark", "Collins", "Cook", "Davis", "Edwards", "Evans", "Fisher",
	"Garcia", "Gray", "Green", "Hall", "Harris", "Hill", "Hopper", "Howard",
	"Hughes", "Jackson", "Johnson", "Jones", "Kelly", "King", "Lee", "Lewis",
	"Lopez", "Martin", "Miller", "Moore", "Morgan", "Murphy", "Nelson",
	"Parker", "Perez", "Reed", "Roberts", "Rogers", "Scott", "Smith",
	"Taylor", "Thomas", "Turner", "Walker", "White", "Wilson", "Young",
}

// US state and territory postal codes.
var states = []string{
	"AL", "AK", "AZ", "AR", "CA", "CO", "CT", "DE", "DC", "FL", "GA", "HI",
	"ID", "IL", "IN", "IA", "KS", "KY", "LA", "ME", "MD", "MA", "MI", "MN",
	"MS", "MO", "MT", "NE", "NV", "NH", "NJ", "NM", "NY", "NC", "ND", "OH",
	"OK", "OR", "PA", "RI", "SC", "SD", "TN", "TX", "UT", "VT", "VA", "WA",
	"WV", "WI", "WY",
}
